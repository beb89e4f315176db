package notify

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gomarkdown/markdown"

	"netsentry/internal/model"
)

// digestFetch is how many recent alerts each evaluation inspects.
const digestFetch = 100

// aiTimeout bounds one digest's AI analysis call.
const aiTimeout = 60 * time.Second

// AlertSource exposes the alert history the digest draws from. The stream
// engine satisfies it.
type AlertSource interface {
	RecentAlerts(n int) []model.Alert
}

// Digest periodically collects fresh alerts and mails them out as one
// consolidated notification. Alert IDs are monotonic, so a high-water mark
// keeps already-sent alerts out of the next batch.
type Digest struct {
	alerts         AlertSource
	notifier       model.Notifier
	analyzer       model.Analyzer
	interval       time.Duration
	minProbability float64

	stopChan chan struct{}
	wg       sync.WaitGroup

	mu     sync.Mutex
	lastID int64
}

// NewDigest builds a digest loop. analyzer may be nil to skip AI analysis.
func NewDigest(alerts AlertSource, notifier model.Notifier, analyzer model.Analyzer, interval time.Duration, minProbability float64) *Digest {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Digest{
		alerts:         alerts,
		notifier:       notifier,
		analyzer:       analyzer,
		interval:       interval,
		minProbability: minProbability,
		stopChan:       make(chan struct{}),
	}
}

// Start begins the periodic evaluation. It blocks until Stop is called.
func (d *Digest) Start() {
	log.Println("Alert digest started")

	d.wg.Add(1)
	defer d.wg.Done()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.evaluate()
		case <-d.stopChan:
			return
		}
	}
}

// Stop ends the loop and flushes any alerts accumulated since the last
// tick.
func (d *Digest) Stop() {
	log.Println("Stopping alert digest...")
	close(d.stopChan)
	d.wg.Wait()
	d.evaluate()
}

// evaluate mails out every alert newer than the high-water mark that clears
// the probability floor. No fresh alerts means no mail.
func (d *Digest) evaluate() {
	d.mu.Lock()
	lastID := d.lastID
	d.mu.Unlock()

	var fresh []model.Alert
	maxID := lastID
	for _, alert := range d.alerts.RecentAlerts(digestFetch) {
		if alert.ID > maxID {
			maxID = alert.ID
		}
		if alert.ID > lastID && alert.Probability >= d.minProbability {
			fresh = append(fresh, alert)
		}
	}

	d.mu.Lock()
	d.lastID = maxID
	d.mu.Unlock()

	if len(fresh) == 0 {
		return
	}
	log.Printf("Digest evaluation completed. %d alert(s) to report.", len(fresh))

	segments := make([]string, 0, len(fresh))
	for _, alert := range fresh {
		segments = append(segments, renderAlert(alert))
	}
	body := "<h1>NetSentry Alert Digest</h1>" +
		"<p>The following alerts were raised since the last digest:</p><hr>" +
		strings.Join(segments, "<hr>")

	aiAnalysis, err := d.getAIAnalysis(summarize(fresh))
	if err != nil {
		log.Printf("Failed to get AI analysis: %v", err)
	} else if aiAnalysis != "" {
		// Convert the model's markdown response to HTML.
		htmlOut := markdown.ToHTML([]byte(aiAnalysis), nil, nil)
		body += "<hr><h2>AI-Powered Analysis</h2>" + string(htmlOut)
	}

	if d.notifier != nil {
		subject := fmt.Sprintf("NetSentry Alert Digest (%d Triggered)", len(fresh))
		if err := d.notifier.Send(subject, body); err != nil {
			log.Printf("ERROR: Failed to send alert digest: %v", err)
		} else {
			log.Printf("INFO: Alert digest sent successfully.")
		}
	}
}

// getAIAnalysis asks the analyzer to assess the alert batch.
func (d *Digest) getAIAnalysis(alertContent string) (string, error) {
	if d.analyzer == nil {
		return "", nil
	}

	log.Println("Requesting AI analysis for alert digest...")
	ctx, cancel := context.WithTimeout(context.Background(), aiTimeout)
	defer cancel()

	return d.analyzer.AnalyzeTraffic(ctx, alertContent)
}

func renderAlert(alert model.Alert) string {
	return fmt.Sprintf(
		"<p><b>Alert #%d</b> [%s] at %s<br>%s<br>%s:%d &rarr; %s:%d (%s), probability %.2f</p>",
		alert.ID,
		alert.ThreatLevel,
		alert.Timestamp.Format("2006-01-02 15:04:05"),
		html.EscapeString(alert.Message),
		alert.Record.SrcIP, alert.Record.SrcPort,
		alert.Record.DstIP, alert.Record.DstPort,
		alert.Record.Protocol,
		alert.Probability,
	)
}

// summarize renders the batch as plain text for the analyzer.
func summarize(alerts []model.Alert) string {
	var b strings.Builder
	for _, alert := range alerts {
		fmt.Fprintf(&b, "#%d [%s] %s %s:%d -> %s:%d proto=%s service=%s probability=%.2f\n",
			alert.ID, alert.ThreatLevel, alert.Timestamp.Format(time.RFC3339),
			alert.Record.SrcIP, alert.Record.SrcPort,
			alert.Record.DstIP, alert.Record.DstPort,
			alert.Record.Protocol, alert.Record.Service, alert.Probability)
	}
	return b.String()
}
