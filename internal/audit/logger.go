package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/in3-cli/in3cli/internal/log"
)

// EventType represents the type of audit event
type EventType string

const (
	EventProfileCreate EventType = "PROFILE_CREATE"
	EventProfileUpdate EventType = "PROFILE_UPDATE"
	EventProfileDelete EventType = "PROFILE_DELETE"
	EventSecretCreate  EventType = "SECRET_CREATE"
	EventSecretDelete  EventType = "SECRET_DELETE"
	EventConfigChange  EventType = "CONFIG_CHANGE"
	EventTransaction   EventType = "TRANSACTION"
	EventError         EventType = "ERROR"
)

// Severity represents the severity level of an audit event
type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)

// AuditEvent represents a single audit log entry
type AuditEvent struct {
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Type      EventType              `json:"type"`
	Severity  Severity               `json:"severity"`
	Source    string                 `json:"source"`
	Profile   string                 `json:"profile,omitempty"`
	Action    string                 `json:"action"`
	Result    string                 `json:"result"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// Logger appends audit events to a JSON-lines file from a background
// worker. A nil *Logger discards everything, so callers can hold one
// unconditionally.
type Logger struct {
	mu        sync.Mutex
	file      *os.File
	filepath  string
	maxSize   int64
	maxAge    time.Duration
	encoder   *json.Encoder
	eventChan chan *AuditEvent
	flushChan chan chan struct{}
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Config represents logger configuration
type Config struct {
	FilePath string
	MaxSize  int64         // Maximum file size in bytes
	MaxAge   time.Duration // Maximum age of rotated files
}

// DefaultConfig returns the settings used when only a path is configured
func DefaultConfig(path string) Config {
	return Config{
		FilePath: path,
		MaxSize:  5 * 1024 * 1024,
		MaxAge:   90 * 24 * time.Hour,
	}
}

// NewLogger creates a new audit logger
func NewLogger(config Config) (*Logger, error) {
	dir := filepath.Dir(config.FilePath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}

	file, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}

	logger := &Logger{
		file:      file,
		filepath:  config.FilePath,
		maxSize:   config.MaxSize,
		maxAge:    config.MaxAge,
		encoder:   json.NewEncoder(file),
		eventChan: make(chan *AuditEvent, 100),
		flushChan: make(chan chan struct{}),
		stopChan:  make(chan struct{}),
	}

	logger.wg.Add(1)
	go logger.worker()

	return logger, nil
}

// Path returns the audit file path
func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	return l.filepath
}

// Log queues an audit event
func (l *Logger) Log(event *AuditEvent) {
	if l == nil {
		return
	}
	if event.ID == "" {
		event.ID = generateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	event.Details = sanitize(event.Details)

	select {
	case l.eventChan <- event:
	case <-time.After(time.Second):
		log.Logger.Warn().Str("type", string(event.Type)).Msg("failed to log audit event: timeout")
	}
}

// LogProfile records a profile lifecycle event
func (l *Logger) LogProfile(eventType EventType, profile string, err error, details map[string]interface{}) {
	event := &AuditEvent{
		Type:     eventType,
		Severity: SeverityInfo,
		Source:   "account",
		Profile:  profile,
		Action:   actionFor(eventType),
		Result:   "SUCCESS",
		Details:  details,
	}
	if err != nil {
		event.Severity = SeverityError
		event.Result = "FAILED"
		event.Error = err.Error()
	}
	l.Log(event)
}

// LogSecret records a secret store operation. Secret material never reaches
// the log: sensitive detail keys are dropped.
func (l *Logger) LogSecret(eventType EventType, profile, backend string, stored bool, err error) {
	event := &AuditEvent{
		Type:     eventType,
		Severity: SeverityInfo,
		Source:   "secrets",
		Profile:  profile,
		Action:   actionFor(eventType),
		Result:   "SUCCESS",
		Details:  map[string]interface{}{"backend": backend},
	}
	switch {
	case err != nil:
		event.Severity = SeverityError
		event.Result = "FAILED"
		event.Error = err.Error()
	case !stored:
		event.Severity = SeverityWarning
		event.Result = "DECLINED"
	}
	l.Log(event)
}

// LogDefaultSwitch records a change of the default profile
func (l *Logger) LogDefaultSwitch(from, to string) {
	l.Log(&AuditEvent{
		Type:     EventConfigChange,
		Severity: SeverityInfo,
		Source:   "account",
		Profile:  to,
		Action:   "switch-default",
		Result:   "SUCCESS",
		Details:  map[string]interface{}{"previous": from},
	})
}

// LogTransaction records a submitted value transfer
func (l *Logger) LogTransaction(profile string, details map[string]interface{}, err error) {
	event := &AuditEvent{
		Type:     EventTransaction,
		Severity: SeverityInfo,
		Source:   "chain",
		Profile:  profile,
		Action:   "send",
		Result:   "SUCCESS",
		Details:  details,
	}
	if err != nil {
		event.Severity = SeverityError
		event.Result = "FAILED"
		event.Error = err.Error()
	}
	l.Log(event)
}

// LogError logs an error event
func (l *Logger) LogError(source string, err error, details map[string]interface{}) {
	l.Log(&AuditEvent{
		Type:     EventError,
		Severity: SeverityError,
		Source:   source,
		Action:   "error",
		Result:   "ERROR",
		Error:    err.Error(),
		Details:  details,
	})
}

// worker processes audit events in the background
func (l *Logger) worker() {
	defer l.wg.Done()

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case event := <-l.eventChan:
			l.writeEvent(event)

		case done := <-l.flushChan:
			l.drain()
			close(done)

		case <-ticker.C:
			l.performMaintenance()

		case <-l.stopChan:
			l.drain()
			return
		}
	}
}

func (l *Logger) drain() {
	for {
		select {
		case event := <-l.eventChan:
			l.writeEvent(event)
		default:
			return
		}
	}
}

// Flush blocks until every queued event has been written
func (l *Logger) Flush() {
	if l == nil {
		return
	}
	done := make(chan struct{})
	select {
	case l.flushChan <- done:
		<-done
	case <-l.stopChan:
	}
}

// writeEvent writes an event to the log file
func (l *Logger) writeEvent(event *AuditEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.encoder.Encode(event); err != nil {
		log.Logger.Warn().Err(err).Msg("failed to write audit event")
	}

	if l.maxSize > 0 {
		if info, err := l.file.Stat(); err == nil && info.Size() > l.maxSize {
			l.rotate()
		}
	}
}

// rotate performs log rotation
func (l *Logger) rotate() {
	_ = l.file.Close()

	timestamp := time.Now().Format("20060102-150405.000000")
	rotatedPath := fmt.Sprintf("%s.%s", l.filepath, timestamp)
	_ = os.Rename(l.filepath, rotatedPath)

	file, err := os.OpenFile(l.filepath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		log.Logger.Warn().Err(err).Msg("failed to open new audit log file")
		return
	}

	l.file = file
	l.encoder = json.NewEncoder(file)
	log.Logger.Debug().Str("rotated", rotatedPath).Msg("rotated audit log")
}

// performMaintenance removes rotated files older than maxAge
func (l *Logger) performMaintenance() {
	if l.maxAge <= 0 {
		return
	}

	dir := filepath.Dir(l.filepath)
	prefix := filepath.Base(l.filepath) + "."

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	cutoff := time.Now().Add(-l.maxAge)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(filepath.Join(dir, entry.Name()))
		}
	}
}

// Close flushes pending events and closes the audit file
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}

	var err error
	l.closeOnce.Do(func() {
		close(l.stopChan)
		l.wg.Wait()

		l.mu.Lock()
		defer l.mu.Unlock()
		err = l.file.Close()
	})
	return err
}

// generateEventID generates a unique event ID
func generateEventID() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), os.Getpid())
}

func actionFor(eventType EventType) string {
	return strings.ToLower(strings.ReplaceAll(string(eventType), "_", "-"))
}

func sanitize(details map[string]interface{}) map[string]interface{} {
	if details == nil {
		return nil
	}
	clean := make(map[string]interface{}, len(details))
	for k, v := range details {
		if !isSensitiveKey(k) {
			clean[k] = v
		}
	}
	return clean
}

// isSensitiveKey checks if a key contains sensitive information
func isSensitiveKey(key string) bool {
	sensitiveKeys := []string{
		"password", "secret", "key", "token", "credential",
		"private", "passphrase", "mnemonic", "seed", "signature",
	}

	keyLower := strings.ToLower(key)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(keyLower, sensitive) {
			return true
		}
	}
	return false
}

// Query represents an audit log query
type Query struct {
	StartTime  time.Time
	EndTime    time.Time
	EventTypes []EventType
	Profiles   []string
	// Limit keeps only the newest matching events
	Limit int
}

// Search reads the current audit file and returns matching events oldest
// first. Rotated files are not searched.
func (l *Logger) Search(query Query) ([]*AuditEvent, error) {
	if l == nil {
		return nil, nil
	}
	l.Flush()

	l.mu.Lock()
	defer l.mu.Unlock()

	return searchFile(l.filepath, query)
}

// SearchFile queries an audit file without opening it for writing
func SearchFile(path string, query Query) ([]*AuditEvent, error) {
	return searchFile(path, query)
}

func searchFile(path string, query Query) ([]*AuditEvent, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer file.Close()

	var events []*AuditEvent
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var event AuditEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			continue // partial line from an interrupted write
		}
		if !query.matches(&event) {
			continue
		}

		events = append(events, &event)
		if query.Limit > 0 && len(events) > query.Limit {
			events = events[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}

	return events, nil
}

func (q Query) matches(event *AuditEvent) bool {
	if !q.StartTime.IsZero() && event.Timestamp.Before(q.StartTime) {
		return false
	}
	if !q.EndTime.IsZero() && event.Timestamp.After(q.EndTime) {
		return false
	}
	if len(q.EventTypes) > 0 && !contains(q.EventTypes, event.Type) {
		return false
	}
	if len(q.Profiles) > 0 && !contains(q.Profiles, event.Profile) {
		return false
	}
	return true
}

func contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}
