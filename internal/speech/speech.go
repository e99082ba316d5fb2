// Package speech reads passages aloud via the OpenAI text-to-speech
// API, caching generated audio on disk so each passage is synthesized
// at most once per voice.
package speech

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Voices lists the supported TTS voices.
var Voices = []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}

// speechSpeed is slightly below normal; the audience is young readers.
const speechSpeed = 0.9

// Client wraps the OpenAI speech endpoint with an on-disk mp3 cache.
type Client struct {
	api      *openai.Client
	voice    openai.SpeechVoice
	cacheDir string
}

// New creates a speech client. The API key and voice are validated up
// front so configuration mistakes fail at startup, not mid-session.
func New(apiKey, voice, cacheDir string) (*Client, error) {
	if err := ValidateAPIKey(apiKey); err != nil {
		return nil, err
	}
	if !validVoice(voice) {
		return nil, fmt.Errorf("unknown voice %q (valid: %s)", voice, strings.Join(Voices, ", "))
	}
	return &Client{
		api:      openai.NewClient(apiKey),
		voice:    openai.SpeechVoice(voice),
		cacheDir: cacheDir,
	}, nil
}

func validVoice(voice string) bool {
	for _, v := range Voices {
		if v == voice {
			return true
		}
	}
	return false
}

// ValidateAPIKey performs a basic format check on an OpenAI API key.
func ValidateAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("API key cannot be empty")
	}
	if !strings.HasPrefix(key, "sk-") {
		return fmt.Errorf("OpenAI API keys should start with 'sk-'")
	}
	if len(key) < 20 {
		return fmt.Errorf("API key seems too short")
	}
	return nil
}

// MaskAPIKey renders a key for display, keeping the first 7 and last 4
// characters.
func MaskAPIKey(key string) string {
	if len(key) < 15 {
		return "***"
	}
	return key[:7] + "..." + key[len(key)-4:]
}

// CachePath returns the audio cache location for a text. The name is an
// md5 of the text prefixed with the voice, so changing either yields a
// fresh file.
func (c *Client) CachePath(text string) string {
	sum := md5.Sum([]byte(text))
	return filepath.Join(c.cacheDir, fmt.Sprintf("%s_%s.mp3", c.voice, hex.EncodeToString(sum[:])))
}

// Synthesize converts text to speech and returns the path of the mp3
// file, serving from cache when possible.
func (c *Client) Synthesize(ctx context.Context, text string) (string, error) {
	path := c.CachePath(text)
	if _, err := os.Stat(path); err == nil {
		slog.Debug("speech cache hit", "path", path)
		return path, nil
	}

	if err := os.MkdirAll(c.cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create audio cache dir: %w", err)
	}

	resp, err := c.api.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model: openai.TTSModel1,
		Input: text,
		Voice: c.voice,
		Speed: speechSpeed,
	})
	if err != nil {
		return "", fmt.Errorf("generate speech: %w", err)
	}
	defer resp.Close()

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create audio file: %w", err)
	}
	if _, err := io.Copy(f, resp); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write audio file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close audio file: %w", err)
	}

	slog.Info("generated speech audio", "voice", string(c.voice), "path", path)
	return path, nil
}

// ClearCache removes all cached mp3 files.
func (c *Client) ClearCache() error {
	matches, err := filepath.Glob(filepath.Join(c.cacheDir, "*.mp3"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			return fmt.Errorf("remove %s: %w", m, err)
		}
	}
	return nil
}
