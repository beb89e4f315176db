// Package persistent spools captured records to disk beside the NATS
// publisher, so a bus outage never loses traffic observations. The text
// encoding writes connection-log lines the engine's log-replay source can
// ingest directly.
package persistent

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"netsentry/internal/model"
)

// Options configure the spool worker.
type Options struct {
	Dir        string
	Encoding   string // gob or text
	BufferSize int
}

// Worker writes enqueued records to a timestamped spool file in the
// background. Enqueue never blocks the capture path.
type Worker struct {
	recordChan chan *model.Record
	stopChan   chan struct{}
	doneChan   chan struct{}
	wg         sync.WaitGroup
}

// NewWorker creates and starts a spool worker.
func NewWorker(opts Options) (*Worker, error) {
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create spool directory: %w", err)
	}

	bufferSize := opts.BufferSize
	if bufferSize <= 0 {
		bufferSize = 10000
	}

	w := &Worker{
		recordChan: make(chan *model.Record, bufferSize),
		stopChan:   make(chan struct{}),
		doneChan:   make(chan struct{}),
	}
	if err := w.start(opts); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Worker) start(opts Options) error {
	file, err := createSpoolFile(opts)
	if err != nil {
		return fmt.Errorf("failed to create spool file: %w", err)
	}

	var workerFunc func(file *os.File)
	switch opts.Encoding {
	case "gob":
		workerFunc = w.runGobWorker
	case "text":
		workerFunc = w.runTextWorker
	default:
		file.Close()
		return fmt.Errorf("unknown spool encoding %q", opts.Encoding)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		workerFunc(file)
	}()

	go func() {
		defer close(w.doneChan)
		<-w.stopChan
		close(w.recordChan)
		w.wg.Wait()
		if err := file.Close(); err != nil {
			log.Printf("Spool worker: error closing file: %v", err)
		}
		log.Println("Spool worker stopped and file closed.")
	}()

	log.Printf("Spool worker started, encoding: %s, writing to: %s", opts.Encoding, file.Name())
	return nil
}

func createSpoolFile(opts Options) (*os.File, error) {
	ext := ".log"
	if opts.Encoding == "gob" {
		ext = ".gob"
	}
	fileName := fmt.Sprintf("%s%s", time.Now().Format("2006-01-02_15-04-05"), ext)
	return os.OpenFile(filepath.Join(opts.Dir, fileName), os.O_CREATE|os.O_WRONLY, 0644)
}

func (w *Worker) runGobWorker(file *os.File) {
	encoder := gob.NewEncoder(file)
	for rec := range w.recordChan {
		if err := encoder.Encode(rec); err != nil {
			log.Printf("Spool worker (gob): error encoding record: %v", err)
		}
	}
}

func (w *Worker) runTextWorker(file *os.File) {
	writer := bufio.NewWriter(file)
	for rec := range w.recordChan {
		line := fmt.Sprintf("%s %s %s %d %d %d\n",
			rec.SrcIP, rec.DstIP, rec.Protocol, rec.SrcPort, rec.DstPort, rec.Size)
		if _, err := writer.WriteString(line); err != nil {
			log.Printf("Spool worker (text): error writing record: %v", err)
		}
	}
	writer.Flush()
}

// Stop closes the spool and waits for buffered records to reach disk.
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
}

// Enqueue hands a record to the spool, dropping when the buffer is full.
func (w *Worker) Enqueue(rec *model.Record) {
	select {
	case w.recordChan <- rec:
	default:
		log.Println("Spool worker: channel is full, dropping record.")
	}
}
