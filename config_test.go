package wildwatch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.viam.com/test"
)

func TestDefaultConfig(t *testing.T) {

	cfg := DefaultConfig()
	test.That(t, cfg.Validate(), test.ShouldBeNil)
	test.That(t, cfg.Capture.UploadPath, test.ShouldEqual, "wildlife_video.mp4")
	test.That(t, cfg.Alert.ImagePath, test.ShouldEqual, "detected_frame.jpg")
	test.That(t, cfg.Alert.Predator, test.ShouldEqual, "hunter")
	test.That(t, cfg.Alert.Protected, test.ShouldEqual, "animal")
	test.That(t, cfg.Model.Presets, test.ShouldHaveLength, 2)

	v := cfg.InitialValues()
	test.That(t, v.Confidence, test.ShouldEqual, float32(0.25))
	test.That(t, v.IoU, test.ShouldEqual, float32(0.45))
	test.That(t, v.Presets, test.ShouldResemble, []string{"wild11"})
	test.That(t, v.Source, test.ShouldEqual, SourceWebcam)
}

func TestDecodeConfig(t *testing.T) {

	cfg, err := DecodeConfig(strings.NewReader(`{
		"listen": ":9000",
		"model": {"backend": "onnxruntime", "input_size": 320},
		"alert": {"token": "abc", "chat_id": "42", "timeout": "3s"},
		"defaults": {"source": "video", "confidence": 0.5, "iou": 0.7}
	}`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Listen, test.ShouldEqual, ":9000")
	test.That(t, cfg.Model.Backend, test.ShouldEqual, BackendONNXRuntime)
	test.That(t, cfg.Model.InputSize, test.ShouldEqual, 320)
	test.That(t, time.Duration(cfg.Alert.Timeout), test.ShouldEqual, 3*time.Second)
	test.That(t, cfg.Defaults.Confidence, test.ShouldEqual, float32(0.5))
	test.That(t, cfg.Defaults.ClassCount, test.ShouldEqual, 3)

	_, err = DecodeConfig(strings.NewReader(`{"model": {"backend": "tensorrt"}}`))
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown model backend")

	_, err = DecodeConfig(strings.NewReader(`{"model": {"input_size": 100}}`))
	test.That(t, err.Error(), test.ShouldContainSubstring, "multiple of 32")

	_, err = DecodeConfig(strings.NewReader(`{"alert": {"timeout": 5}}`))
	test.That(t, err, test.ShouldNotBeNil)

	_, err = DecodeConfig(strings.NewReader(`{"unknown": true}`))
	test.That(t, err, test.ShouldNotBeNil)

	_, err = DecodeConfig(strings.NewReader(`{"model": {"presets": [
		{"name": "a", "weights": "a.onnx", "labels": "a.txt"},
		{"name": "a", "weights": "b.onnx", "labels": "b.txt"}]}}`))
	test.That(t, err.Error(), test.ShouldContainSubstring, "duplicate preset")

	_, err = DecodeConfig(strings.NewReader(`{"alert": {"predator": "animal"}}`))
	test.That(t, err, test.ShouldNotBeNil)

	_, err = DecodeConfig(strings.NewReader(`{"defaults": {"class_count": -1}}`))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "class count -1")
}

func TestReadConfigSubstitutesEnv(t *testing.T) {

	t.Setenv("WILDWATCH_TEST_TOKEN", "secret-token")
	t.Setenv("WILDWATCH_TEST_CHAT", "-1001")

	file := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(file, []byte(`{"alert": {"token": "${WILDWATCH_TEST_TOKEN}", "chat_id": "${WILDWATCH_TEST_CHAT}"}}`), 0o644)
	test.That(t, err, test.ShouldBeNil)

	cfg, err := ReadConfig(file)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Alert.Token, test.ShouldEqual, "secret-token")
	test.That(t, cfg.Alert.ChatID, test.ShouldEqual, "-1001")

	_, err = ReadConfig(filepath.Join(t.TempDir(), "none.json"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestReadExampleConfig(t *testing.T) {

	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "42")

	cfg, err := ReadConfig("wildwatch.example.json")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Alert.Token, test.ShouldEqual, "123:abc")
	test.That(t, cfg.Alert.ChatID, test.ShouldEqual, "42")
	test.That(t, cfg.Alert.Timeout, test.ShouldEqual, Duration(10*time.Second))
	test.That(t, cfg.Model.Presets, test.ShouldHaveLength, 2)
	test.That(t, cfg.InitialValues().Presets, test.ShouldResemble, []string{"wild11"})
}
