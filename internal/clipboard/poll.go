package clipboard

import (
	"clipboard-sync/pkg/types"
	"errors"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"go.uber.org/zap"
)

var ErrUnsupportedType = errors.New("only text items can be written to the clipboard")

// PollingMonitor polls the system clipboard for text changes.
type PollingMonitor struct {
	read     func() (string, error)
	write    func(string) error
	interval time.Duration
	logger   *zap.Logger
	custom   bool

	mutex    sync.RWMutex
	handler  func(types.Item)
	last     string
	failing  bool
	started  bool
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type Option func(*PollingMonitor)

// WithClipboard replaces the system clipboard accessors.
func WithClipboard(read func() (string, error), write func(string) error) Option {
	return func(m *PollingMonitor) {
		m.read = read
		m.write = write
		m.custom = true
	}
}

func NewMonitor(interval time.Duration, logger *zap.Logger, opts ...Option) *PollingMonitor {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	m := &PollingMonitor{
		read:     clipboard.ReadAll,
		write:    clipboard.WriteAll,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *PollingMonitor) Start() error {
	if clipboard.Unsupported && !m.custom {
		return errors.New("no clipboard utility available")
	}

	m.mutex.Lock()
	if m.started {
		m.mutex.Unlock()
		return errors.New("monitor already started")
	}
	m.started = true
	// Whatever is on the clipboard at start is not a new copy
	if current, err := m.read(); err == nil {
		m.last = current
	}
	m.mutex.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.checkForChanges()
			case <-m.stopChan:
				return
			}
		}
	}()

	return nil
}

func (m *PollingMonitor) Stop() error {
	m.stopOnce.Do(func() { close(m.stopChan) })
	m.wg.Wait()
	return nil
}

func (m *PollingMonitor) OnChange(handler func(types.Item)) {
	m.mutex.Lock()
	m.handler = handler
	m.mutex.Unlock()
}

// SetContent puts a text item on the clipboard without reporting it back
// as a change.
func (m *PollingMonitor) SetContent(item types.Item) error {
	if item.Type == types.TypeImage || item.Type == types.TypeFile {
		return ErrUnsupportedType
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	if err := m.write(item.Content); err != nil {
		return err
	}
	m.last = item.Content
	return nil
}

func (m *PollingMonitor) checkForChanges() {
	text, err := m.read()

	m.mutex.Lock()
	if err != nil {
		if !m.failing {
			m.logger.Warn("Clipboard read failed", zap.Error(err))
			m.failing = true
		}
		m.mutex.Unlock()
		return
	}
	m.failing = false
	if text == "" || text == m.last {
		m.mutex.Unlock()
		return
	}
	m.last = text
	handler := m.handler
	m.mutex.Unlock()

	m.logger.Debug("Clipboard change detected", zap.Int("bytes", len(text)))
	if handler != nil {
		handler(types.Item{
			Content:   text,
			Type:      types.DetectType(text),
			Timestamp: time.Now().UTC(),
		})
	}
}
