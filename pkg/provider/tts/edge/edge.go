// Package edge provides a TTS provider backed by the Microsoft Edge online
// speech service. It implements the tts.Provider interface.
//
// The service speaks a small websocket protocol: after a speech.config text
// frame and an SSML text frame, it answers with binary frames carrying MP3
// audio until a turn.end text frame closes the exchange. Each synthesis uses
// its own short-lived connection.
package edge

import (
	"context"
	"encoding/binary"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/strmhost/iris/pkg/provider/tts"
)

const (
	endpointURL  = "wss://speech.platform.bing.com/consumer/speech/synthesize/readaloud/edge/v1"
	trustedToken = "6A5AA1D4EAFF4E9FB37E23D68491D6F4"

	// DefaultOutputFormat is the audio encoding requested from the service.
	DefaultOutputFormat = "audio-24khz-48kbitrate-mono-mp3"

	defaultDialTimeout = 10 * time.Second

	// binaryHeaderLen is the size of the length prefix on binary frames.
	binaryHeaderLen = 2
)

// ErrNoAudio is returned when the service ends the turn without sending any
// audio frames.
var ErrNoAudio = errors.New("edge tts: no audio received")

// Compile-time interface check.
var _ tts.Provider = (*Provider)(nil)

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithOutputFormat sets the requested audio encoding.
func WithOutputFormat(format string) Option {
	return func(p *Provider) {
		if format != "" {
			p.outputFormat = format
		}
	}
}

// WithDialTimeout bounds connection establishment. Default: 10s.
func WithDialTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.dialTimeout = d
		}
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(p *Provider) {
		if log != nil {
			p.log = log
		}
	}
}

// Provider implements tts.Provider against the Edge speech service.
type Provider struct {
	outputFormat string
	dialTimeout  time.Duration
	log          *slog.Logger
}

// New creates an Edge-backed Provider. The service needs no API key.
func New(opts ...Option) *Provider {
	p := &Provider{
		outputFormat: DefaultOutputFormat,
		dialTimeout:  defaultDialTimeout,
		log:          slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Synthesize implements tts.Provider. It dials the service, sends the config
// and SSML frames, and streams decoded audio chunks on the returned channel.
// The channel is closed when the service signals turn.end or ctx is
// cancelled.
func (p *Provider) Synthesize(ctx context.Context, text string, voice tts.Voice) (<-chan []byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("edge tts: text must not be empty")
	}
	if voice.Name == "" {
		return nil, errors.New("edge tts: voice name must not be empty")
	}

	connID := strings.ReplaceAll(uuid.NewString(), "-", "")
	url := fmt.Sprintf("%s?TrustedClientToken=%s&ConnectionId=%s", endpointURL, trustedToken, connID)

	dialCtx, cancel := context.WithTimeout(ctx, p.dialTimeout)
	defer cancel()

	header := http.Header{}
	header.Set("Origin", "chrome-extension://jdiccldimpdaibmpdkjnbmckianbfold")
	header.Set("Pragma", "no-cache")
	header.Set("Cache-Control", "no-cache")

	conn, _, err := websocket.Dial(dialCtx, url, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return nil, fmt.Errorf("edge tts: dial: %w", err)
	}
	// Audio frames can be sizable.
	conn.SetReadLimit(1 << 20)

	if err := p.sendConfig(ctx, conn); err != nil {
		conn.Close(websocket.StatusInternalError, "config failed")
		return nil, err
	}
	if err := p.sendSSML(ctx, conn, text, voice); err != nil {
		conn.Close(websocket.StatusInternalError, "ssml failed")
		return nil, err
	}

	out := make(chan []byte)
	go p.receive(ctx, conn, out)
	return out, nil
}

func (p *Provider) sendConfig(ctx context.Context, conn *websocket.Conn) error {
	frame := "X-Timestamp:" + timestamp() + "\r\n" +
		"Content-Type:application/json; charset=utf-8\r\n" +
		"Path:speech.config\r\n\r\n" +
		`{"context":{"synthesis":{"audio":{"metadataoptions":` +
		`{"sentenceBoundaryEnabled":"false","wordBoundaryEnabled":"false"},` +
		`"outputFormat":"` + p.outputFormat + `"}}}}`

	if err := conn.Write(ctx, websocket.MessageText, []byte(frame)); err != nil {
		return fmt.Errorf("edge tts: send speech.config: %w", err)
	}
	return nil
}

func (p *Provider) sendSSML(ctx context.Context, conn *websocket.Conn, text string, voice tts.Voice) error {
	frame := "X-RequestId:" + strings.ReplaceAll(uuid.NewString(), "-", "") + "\r\n" +
		"Content-Type:application/ssml+xml\r\n" +
		"X-Timestamp:" + timestamp() + "\r\n" +
		"Path:ssml\r\n\r\n" +
		buildSSML(text, voice)

	if err := conn.Write(ctx, websocket.MessageText, []byte(frame)); err != nil {
		return fmt.Errorf("edge tts: send ssml: %w", err)
	}
	return nil
}

// receive reads frames until turn.end, streaming audio payloads to out.
func (p *Provider) receive(ctx context.Context, conn *websocket.Conn, out chan<- []byte) {
	defer close(out)
	defer conn.Close(websocket.StatusNormalClosure, "")

	gotAudio := false
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				p.log.Warn("edge tts: read failed", "error", err)
			}
			return
		}

		switch typ {
		case websocket.MessageText:
			if strings.Contains(string(data), "Path:turn.end") {
				if !gotAudio {
					p.log.Warn("edge tts: turn ended without audio")
				}
				return
			}
		case websocket.MessageBinary:
			audio, ok := audioPayload(data)
			if !ok {
				continue
			}
			gotAudio = true
			select {
			case out <- audio:
			case <-ctx.Done():
				return
			}
		}
	}
}

// audioPayload extracts the audio bytes from a binary frame. The frame starts
// with a big-endian header length, followed by the header and the payload;
// only frames whose header routes to Path:audio carry sound.
func audioPayload(data []byte) ([]byte, bool) {
	if len(data) < binaryHeaderLen {
		return nil, false
	}
	headerLen := int(binary.BigEndian.Uint16(data[:binaryHeaderLen]))
	if binaryHeaderLen+headerLen > len(data) {
		return nil, false
	}
	header := string(data[binaryHeaderLen : binaryHeaderLen+headerLen])
	if !strings.Contains(header, "Path:audio") {
		return nil, false
	}
	payload := data[binaryHeaderLen+headerLen:]
	if len(payload) == 0 {
		return nil, false
	}
	return payload, true
}

// buildSSML renders the utterance, wrapping the escaped text in a prosody
// element when the voice carries non-neutral offsets.
func buildSSML(text string, voice tts.Voice) string {
	var esc strings.Builder
	xml.EscapeText(&esc, []byte(text)) //nolint:errcheck // strings.Builder never errors
	body := esc.String()

	pr := voice.Prosody
	if pr == (tts.Prosody{}) {
		pr = tts.EmotionNeutral.Prosody()
	}
	body = fmt.Sprintf(`<prosody rate="%s" pitch="%s" volume="%s">%s</prosody>`,
		pr.Rate, pr.Pitch, pr.Volume, body)

	lang := voiceLang(voice.Name)
	return fmt.Sprintf(
		`<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xml:lang="%s"><voice name="%s">%s</voice></speak>`,
		lang, voice.Name, body)
}

// voiceLang derives the xml:lang locale from a voice name such as
// "ru-RU-SvetlanaNeural".
func voiceLang(name string) string {
	parts := strings.SplitN(name, "-", 3)
	if len(parts) >= 2 {
		return parts[0] + "-" + parts[1]
	}
	return "en-US"
}

func timestamp() string {
	return time.Now().UTC().Format("Mon Jan 02 2006 15:04:05 GMT+0000 (Coordinated Universal Time)")
}
