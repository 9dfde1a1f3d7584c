package voice

import (
	"sync"
	"time"
)

// Metrics tracks latency for one recognised utterance.
// Latencies are measured from the moment the endpointer closes the utterance.
type Metrics struct {
	SpeechEndTime  time.Time // When the endpointer detected end of speech
	TranscriptTime time.Time // When the recognizer finished decoding

	ASRLatency time.Duration // Time to complete transcription
	Samples    int           // Utterance length in samples
}

// MetricsCollector collects recognition latency.
// It is goroutine-safe.
type MetricsCollector struct {
	mu      sync.Mutex
	current Metrics
	history []Metrics // Recent utterances for averaging

	onUpdate func(Metrics)
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		history: make([]Metrics, 0, 100),
	}
}

// OnUpdate sets a callback that fires whenever a transcript completes.
func (m *MetricsCollector) OnUpdate(fn func(Metrics)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onUpdate = fn
}

// MarkSpeechEnd records when an utterance of n samples was closed.
func (m *MetricsCollector) MarkSpeechEnd(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = Metrics{SpeechEndTime: time.Now(), Samples: n}
}

// MarkTranscript records when transcription completed and archives the utterance.
func (m *MetricsCollector) MarkTranscript() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.TranscriptTime = time.Now()
	if !m.current.SpeechEndTime.IsZero() {
		m.current.ASRLatency = m.current.TranscriptTime.Sub(m.current.SpeechEndTime)
	}

	m.history = append(m.history, m.current)
	if len(m.history) > 100 {
		m.history = m.history[1:]
	}
	if m.onUpdate != nil {
		go m.onUpdate(m.current)
	}
}

// Current returns the current metrics snapshot.
func (m *MetricsCollector) Current() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Average returns the mean ASR latency over recent utterances.
func (m *MetricsCollector) Average() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.history) == 0 {
		return 0
	}
	var sum time.Duration
	for _, h := range m.history {
		sum += h.ASRLatency
	}
	return sum / time.Duration(len(m.history))
}

// FormatLatency returns a formatted string of the last latency.
func (m *Metrics) FormatLatency() string {
	return formatDuration(m.ASRLatency) + " ASR"
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "---ms"
	}
	return d.Round(time.Millisecond).String()
}
