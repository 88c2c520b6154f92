package notifier

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

// Per-source embed colors, matching what subscribers already recognize.
var sourceColors = map[string]int{
	"인터파크": 0x00AAFF,
	"yes24": 0x00FF00,
	"멜론티켓": 0x44CF00,
	"티켓링크": 0xFF5500,
}

const defaultEmbedColor = 0x808080
const priorityEmbedColor = 0xE74C3C

// ContainsKeyword reports whether title contains at least one of the given
// keywords, case-insensitive. An empty keyword list never matches.
func ContainsKeyword(title string, keywords []string) bool {
	lower := strings.ToLower(title)
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

type DispatcherConfig struct {
	Keywords         []string
	PriorityKeywords []string
	// Delay paces sends to respect outbound rate limits; PriorityDelay is
	// the (usually shorter) pacing for priority records.
	Delay         time.Duration
	PriorityDelay time.Duration
	MaxPerBatch   int
	SendTimeout   time.Duration
	Debug         bool
}

// Dispatcher formats and transmits notifications and records success in the
// ledger. It must be driven from a single goroutine.
type Dispatcher struct {
	cfg    DispatcherConfig
	sender WebhookSender
	ledger *Ledger
	retry  RetryPolicy
	now    func() time.Time
	sleep  func(time.Duration)
}

func NewDispatcher(cfg DispatcherConfig, sender WebhookSender, ledger *Ledger) *Dispatcher {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	return &Dispatcher{
		cfg:    cfg,
		sender: sender,
		ledger: ledger,
		retry:  DefaultRetryPolicy(),
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

func (d *Dispatcher) debugf(format string, args ...any) {
	if d == nil || !d.cfg.Debug {
		return
	}
	log.Printf(format, args...)
}

// ShouldSend applies the configured keyword filter. With no keywords
// configured every record passes.
func (d *Dispatcher) ShouldSend(r NoticeRecord) bool {
	if len(d.cfg.Keywords) == 0 {
		return true
	}
	return ContainsKeyword(r.Title, d.cfg.Keywords)
}

// IsPriority reports whether the record's title matches the priority keyword
// list.
func (d *Dispatcher) IsPriority(r NoticeRecord) bool {
	return ContainsKeyword(r.Title, d.cfg.PriorityKeywords)
}

// FormatMessage builds the outbound payload. Missing optional fields are
// omitted; it never fails.
func (d *Dispatcher) FormatMessage(r NoticeRecord) Message {
	color, ok := sourceColors[strings.ToLower(strings.TrimSpace(r.Source))]
	if !ok {
		color = defaultEmbedColor
	}
	content := "🎫 **새로운 티켓 오픈 정보** 🎫"
	if d.IsPriority(r) {
		content = "🚨 **새로운 티켓 오픈 정보** 🚨"
		color = priorityEmbedColor
	}

	now := d.now()
	embed := Embed{
		Title: strings.TrimSpace(r.Title),
		Color: color,
		Footer: &EmbedFooter{
			Text: fmt.Sprintf("출처: %s | 알림 시간: %s", strings.TrimSpace(r.Source), now.Format("2006-01-02 15:04:05")),
		},
		Timestamp: now.UTC().Format(time.RFC3339),
	}
	if od := strings.TrimSpace(r.OpenDate); od != "" {
		embed.Description = "**오픈 일시:** " + od
	}
	if r.Link != "" && r.Link != LinkPlaceholder {
		embed.URL = r.Link
	}
	return Message{Content: content, Embeds: []Embed{embed}}
}

// Send transmits one record. A 429 gets one bounded retry after a short
// backoff; transport success marks the record sent in the ledger before
// returning. Any other failure leaves the record un-marked so the next run
// retries it.
func (d *Dispatcher) Send(r NoticeRecord) error {
	msg := d.FormatMessage(r)
	err := d.retry.Do(
		func() error { return d.sender.SendTimeout(msg, d.cfg.SendTimeout) },
		func(err error) bool { return errors.Is(err, ErrRateLimited) },
	)
	if err != nil {
		return err
	}
	if err := d.ledger.MarkSent(r); err != nil {
		// The notification went out; a persistence failure here risks a
		// duplicate next run but must not undo the send.
		log.Printf("warning: mark sent failed: %v", err)
	}
	return nil
}

// BatchResult counts the outcome of one SendBatch invocation.
type BatchResult struct {
	Sent    int
	Failed  int
	Skipped int
}

// SendBatch dispatches eligible records: priority records first, each group
// stable-sorted by parsed open date, capped at MaxPerBatch, with a pacing
// delay between sends. It returns counts instead of failing so the caller
// can log and continue.
func (d *Dispatcher) SendBatch(records []NoticeRecord) BatchResult {
	var res BatchResult

	var priority, normal []NoticeRecord
	for _, r := range records {
		if !d.ShouldSend(r) {
			res.Skipped++
			continue
		}
		if d.IsPriority(r) {
			priority = append(priority, r)
		} else {
			normal = append(normal, r)
		}
	}
	now := d.now()
	SortByOpenDate(priority, now)
	SortByOpenDate(normal, now)
	ordered := append(priority, normal...)

	if d.cfg.MaxPerBatch > 0 && len(ordered) > d.cfg.MaxPerBatch {
		res.Skipped += len(ordered) - d.cfg.MaxPerBatch
		ordered = ordered[:d.cfg.MaxPerBatch]
	}

	for i, r := range ordered {
		if err := d.Send(r); err != nil {
			log.Printf("send failed source=%q title=%q: %v", r.Source, r.Title, err)
			res.Failed++
		} else {
			d.debugf("send ok source=%q title=%q", r.Source, r.Title)
			res.Sent++
		}
		if i == len(ordered)-1 {
			break
		}
		delay := d.cfg.Delay
		if i < len(priority) && d.cfg.PriorityDelay > 0 {
			delay = d.cfg.PriorityDelay
		}
		if delay > 0 {
			d.sleep(delay)
		}
	}
	return res
}
