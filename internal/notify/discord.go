package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// Discord embed limits.
const (
	maxTitle       = 256
	maxDescription = 4096
	maxFieldName   = 256
	maxFieldValue  = 1024
	maxFields      = 25
)

var colors = map[string]int{
	KindArrest:        0xE74C3C,
	KindReport:        0x3498DB,
	KindWanted:        0xE67E22,
	KindWeaponLicense: 0x2ECC71,
	KindOperator:      0x95A5A6,
}

type webhookPayload struct {
	Username string  `json:"username,omitempty"`
	Embeds   []embed `json:"embeds"`
}

type embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color"`
	Fields      []embedField `json:"fields,omitempty"`
	Footer      *embedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type embedFooter struct {
	Text string `json:"text"`
}

// Discord posts events to a webhook URL.
type Discord struct {
	url      string
	username string
	client   *http.Client
	timeout  time.Duration
	log      zerolog.Logger
	wg       sync.WaitGroup
}

// New returns a Discord dispatcher, or Noop when url is empty.
func New(url string, timeout time.Duration, log zerolog.Logger) Dispatcher {
	if strings.TrimSpace(url) == "" {
		return Noop{}
	}
	return NewDiscord(url, timeout, log)
}

// NewDiscord builds a Discord dispatcher for url.
func NewDiscord(url string, timeout time.Duration, log zerolog.Logger) *Discord {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Discord{
		url:      url,
		username: "MDT",
		client:   &http.Client{Timeout: timeout},
		timeout:  timeout,
		log:      log.With().Str("component", "notify").Logger(),
	}
}

// Notify posts ev in the background. The request is detached from ctx so a
// finished HTTP request does not cancel the delivery.
func (d *Discord) Notify(ctx context.Context, ev Event) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()
		if err := d.Send(sctx, ev); err != nil {
			sent.WithLabelValues(ev.Kind, "error").Inc()
			d.log.Warn().Err(err).Str("kind", ev.Kind).Msg("discord notification failed")
			return
		}
		sent.WithLabelValues(ev.Kind, "ok").Inc()
	}()
}

// Wait blocks until in-flight notifications finish.
func (d *Discord) Wait() { d.wg.Wait() }

// Send posts ev synchronously.
func (d *Discord) Send(ctx context.Context, ev Event) error {
	body, err := json.Marshal(buildPayload(d.username, ev))
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	}
	return nil
}

func buildPayload(username string, ev Event) webhookPayload {
	color, ok := colors[ev.Kind]
	if !ok {
		color = colors[KindOperator]
	}
	e := embed{
		Title:       clip(ev.Title, maxTitle),
		Description: clip(ev.Description, maxDescription),
		Color:       color,
	}
	for _, f := range ev.Fields {
		if len(e.Fields) == maxFields {
			break
		}
		v := strings.TrimSpace(f.Value)
		if v == "" {
			v = "-"
		}
		e.Fields = append(e.Fields, embedField{
			Name:   clip(f.Name, maxFieldName),
			Value:  clip(v, maxFieldValue),
			Inline: f.Inline,
		})
	}
	if ev.Actor != "" {
		e.Footer = &embedFooter{Text: clip(ev.Actor, 2048)}
	}
	if !ev.At.IsZero() {
		e.Timestamp = ev.At.UTC().Format(time.RFC3339)
	}
	return webhookPayload{Username: username, Embeds: []embed{e}}
}

// clip truncates s to n runes, marking the cut with an ellipsis.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
