package alert

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/rangerlab/wildwatch"
)

func newTelegram(url string) *Telegram {
	return NewTelegram(wildwatch.AlertConfig{
		APIURL:  url + "/",
		Token:   "123:secret",
		ChatID:  "-100200",
		Timeout: wildwatch.Duration(2 * time.Second),
	})
}

func TestTelegramSendMessage(t *testing.T) {

	var gotPath, gotChat, gotText string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotChat = r.PostFormValue("chat_id")
		gotText = r.PostFormValue("text")
		fmt.Fprint(w, `{"ok":true,"result":{}}`)
	}))
	defer srv.Close()

	tg := newTelegram(srv.URL)

	err := tg.SendMessage(context.Background(), "🚨 Urgent Alert! Hunter detected near wildlife!")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, gotPath, test.ShouldEqual, "/bot123:secret/sendMessage")
	test.That(t, gotChat, test.ShouldEqual, "-100200")
	test.That(t, gotText, test.ShouldEqual, "🚨 Urgent Alert! Hunter detected near wildlife!")
}

func TestTelegramSendPhoto(t *testing.T) {

	photo := filepath.Join(t.TempDir(), "detected_frame.jpg")
	test.That(t, os.WriteFile(photo, []byte("jpegdata"), 0o644), test.ShouldBeNil)

	var gotPath, gotChat, gotName, gotData string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		gotChat = r.FormValue("chat_id")

		f, hdr, err := r.FormFile("photo")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()

		gotName = hdr.Filename
		b, _ := io.ReadAll(f)
		gotData = string(b)

		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	err := newTelegram(srv.URL).SendPhoto(context.Background(), photo)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, gotPath, test.ShouldEqual, "/bot123:secret/sendPhoto")
	test.That(t, gotChat, test.ShouldEqual, "-100200")
	test.That(t, gotName, test.ShouldEqual, "detected_frame.jpg")
	test.That(t, gotData, test.ShouldEqual, "jpegdata")
}

func TestTelegramAPIErrors(t *testing.T) {

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "sendMessage"):
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"ok":false,"description":"Bad Request: chat not found"}`)
		default:
			w.WriteHeader(http.StatusBadGateway)
			fmt.Fprint(w, "<html>bad gateway</html>")
		}
	}))
	defer srv.Close()

	tg := newTelegram(srv.URL)

	err := tg.SendMessage(context.Background(), "hi")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "chat not found")

	photo := filepath.Join(t.TempDir(), "p.jpg")
	test.That(t, os.WriteFile(photo, []byte("x"), 0o644), test.ShouldBeNil)

	err = tg.SendPhoto(context.Background(), photo)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "502")
}

func TestTelegramOkFalseWith200(t *testing.T) {

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":false,"description":"Forbidden"}`)
	}))
	defer srv.Close()

	err := newTelegram(srv.URL).SendMessage(context.Background(), "hi")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "Forbidden")
}

func TestTelegramTransportErrorHidesToken(t *testing.T) {

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := newTelegram(url).SendMessage(context.Background(), "hi")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldNotContainSubstring, "secret")
}

func TestTelegramMissingPhoto(t *testing.T) {
	err := newTelegram("http://127.0.0.1:1").SendPhoto(context.Background(),
		filepath.Join(t.TempDir(), "none.jpg"))
	test.That(t, err, test.ShouldNotBeNil)
}
