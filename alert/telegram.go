package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/rangerlab/wildwatch"
)

// Telegram sends alerts through the Telegram Bot API to a single chat
type Telegram struct {
	client *http.Client
	api    string
	token  string
	chatID string
}

// NewTelegram returns a Telegram notifier for the configured bot and chat
func NewTelegram(cfg wildwatch.AlertConfig) *Telegram {
	return &Telegram{
		client: &http.Client{Timeout: time.Duration(cfg.Timeout)},
		api:    strings.TrimRight(cfg.APIURL, "/"),
		token:  cfg.Token,
		chatID: cfg.ChatID,
	}
}

// apiResponse is the envelope every Bot API method answers with
type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// SendMessage posts text to the chat with the sendMessage method
func (t *Telegram) SendMessage(ctx context.Context, text string) error {

	form := url.Values{}
	form.Set("chat_id", t.chatID)
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.method("sendMessage"),
		strings.NewReader(form.Encode()))

	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return t.do(req)
}

// SendPhoto uploads the image file at path to the chat with the sendPhoto
// method
func (t *Telegram) SendPhoto(ctx context.Context, path string) error {

	f, err := os.Open(path)

	if err != nil {
		return errors.Wrap(err, "error opening photo")
	}

	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("chat_id", t.chatID); err != nil {
		return err
	}

	part, err := mw.CreateFormFile("photo", filepath.Base(path))

	if err != nil {
		return err
	}

	if _, err := io.Copy(part, f); err != nil {
		return errors.Wrap(err, "error reading photo")
	}

	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.method("sendPhoto"), &body)

	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", mw.FormDataContentType())

	return t.do(req)
}

// method returns the URL of a Bot API method
func (t *Telegram) method(name string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.api, t.token, name)
}

// do sends the request and checks the API envelope.  The token is part of
// the URL so transport errors are reported without it.
func (t *Telegram) do(req *http.Request) error {

	method := filepath.Base(req.URL.Path)

	resp, err := t.client.Do(req)

	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}

		return errors.Wrapf(err, "telegram %s request failed", method)
	}

	defer resp.Body.Close()

	var res apiResponse

	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&res); err != nil {
		return errors.Errorf("telegram %s: unexpected response, status %s", method, resp.Status)
	}

	if resp.StatusCode/100 != 2 || !res.OK {
		return errors.Errorf("telegram %s: %s (status %d)", method, res.Description, resp.StatusCode)
	}

	return nil
}
