package logging

import (
	"sync"
	"time"
)

// ErrorCategory is the pipeline stage an error came from
type ErrorCategory string

const (
	ErrorCategoryQueue   ErrorCategory = "queue"
	ErrorCategoryScrape  ErrorCategory = "scrape"
	ErrorCategoryCompose ErrorCategory = "compose"
	ErrorCategoryPublish ErrorCategory = "publish"
	ErrorCategoryDevice  ErrorCategory = "device"
	ErrorCategoryJournal ErrorCategory = "journal"
	ErrorCategoryConfig  ErrorCategory = "config"
)

// ErrorSeverity represents the severity of an error
type ErrorSeverity string

const (
	ErrorSeverityLow      ErrorSeverity = "low"      // logged at INFO
	ErrorSeverityMedium   ErrorSeverity = "medium"   // logged at WARN
	ErrorSeverityHigh     ErrorSeverity = "high"     // logged at ERROR, ends the offer
	ErrorSeverityCritical ErrorSeverity = "critical" // ends the run
)

// ErrorReport is one reported failure
type ErrorReport struct {
	Timestamp time.Time
	Category  ErrorCategory
	Severity  ErrorSeverity
	Message   string
	Err       error
	Context   map[string]interface{}
}

// ErrorCallback is called synchronously for each matching report
type ErrorCallback func(report ErrorReport)

// ErrorReporter logs failures with their stage and keeps a bounded history
// so a run can summarise what went wrong
type ErrorReporter struct {
	logger     *Logger
	maxHistory int

	mu        sync.RWMutex
	history   []ErrorReport
	callbacks map[ErrorSeverity][]ErrorCallback
}

const defaultMaxHistory = 200

// NewErrorReporter reports through logger; nil discards the log lines
func NewErrorReporter(logger *Logger) *ErrorReporter {
	if logger == nil {
		logger = Discard()
	}
	return &ErrorReporter{
		logger:     logger,
		maxHistory: defaultMaxHistory,
		callbacks:  make(map[ErrorSeverity][]ErrorCallback),
	}
}

// Report logs report, stores it and runs the callbacks for its severity
func (er *ErrorReporter) Report(report ErrorReport) {
	if report.Timestamp.IsZero() {
		report.Timestamp = time.Now()
	}
	er.logReport(report)

	er.mu.Lock()
	er.history = append(er.history, report)
	if len(er.history) > er.maxHistory {
		er.history = er.history[len(er.history)-er.maxHistory:]
	}
	callbacks := append([]ErrorCallback(nil), er.callbacks[report.Severity]...)
	er.mu.Unlock()

	for _, cb := range callbacks {
		cb(report)
	}
}

// ReportError reports err with no extra context
func (er *ErrorReporter) ReportError(category ErrorCategory, severity ErrorSeverity, message string, err error) {
	er.Report(ErrorReport{Category: category, Severity: severity, Message: message, Err: err})
}

// ReportErrorWithContext reports err with extra fields for the log line
func (er *ErrorReporter) ReportErrorWithContext(category ErrorCategory, severity ErrorSeverity, message string, err error, context map[string]interface{}) {
	er.Report(ErrorReport{Category: category, Severity: severity, Message: message, Err: err, Context: context})
}

func (er *ErrorReporter) logReport(report ErrorReport) {
	context := map[string]interface{}{
		"category": string(report.Category),
		"severity": string(report.Severity),
	}
	for k, v := range report.Context {
		context[k] = v
	}

	switch report.Severity {
	case ErrorSeverityLow:
		if report.Err != nil {
			context["error"] = report.Err.Error()
		}
		er.logger.InfoWithContext(report.Message, context)
	case ErrorSeverityMedium:
		if report.Err != nil {
			context["error"] = report.Err.Error()
		}
		er.logger.WarnWithContext(report.Message, context)
	default:
		er.logger.ErrorWithContext(report.Message, report.Err, context)
	}
}

// OnError registers a callback for one severity
func (er *ErrorReporter) OnError(severity ErrorSeverity, callback ErrorCallback) {
	er.mu.Lock()
	defer er.mu.Unlock()
	er.callbacks[severity] = append(er.callbacks[severity], callback)
}

// GetRecentErrors returns up to n reports, oldest first
func (er *ErrorReporter) GetRecentErrors(n int) []ErrorReport {
	er.mu.RLock()
	defer er.mu.RUnlock()

	if n > len(er.history) {
		n = len(er.history)
	}
	out := make([]ErrorReport, n)
	copy(out, er.history[len(er.history)-n:])
	return out
}

// GetErrorStats counts the history by "total", "severity_<s>" and "category_<c>"
func (er *ErrorReporter) GetErrorStats() map[string]int {
	er.mu.RLock()
	defer er.mu.RUnlock()

	stats := map[string]int{"total": len(er.history)}
	for _, report := range er.history {
		stats["severity_"+string(report.Severity)]++
		stats["category_"+string(report.Category)]++
	}
	return stats
}
