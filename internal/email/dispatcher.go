package email

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Recorder recibe el resultado de cada envío (métricas).
type Recorder interface {
	EmailSent()
	EmailFailed()
}

// Dispatcher envía correos en segundo plano desde una cola acotada.
// Los fallos se registran en el log y no se reintentan.
type Dispatcher struct {
	sender   Sender
	logger   *zap.Logger
	recorder Recorder
	timeout  time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan Message
	wg     sync.WaitGroup
}

func NewDispatcher(sender Sender, logger *zap.Logger, workers, queueSize int, recorder Recorder) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 16
	}
	d := &Dispatcher{
		sender:   sender,
		logger:   logger,
		recorder: recorder,
		timeout:  30 * time.Second,
		queue:    make(chan Message, queueSize),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	return d
}

// Enqueue agrega el mensaje sin bloquear. Devuelve false si la cola está llena o cerrada.
func (d *Dispatcher) Enqueue(msg Message) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warn("email dispatcher closed, dropping message", zap.String("to", msg.To), zap.String("subject", msg.Subject))
		return false
	}
	select {
	case d.queue <- msg:
		return true
	default:
		d.logger.Warn("email queue full, dropping message", zap.String("to", msg.To), zap.String("subject", msg.Subject))
		if d.recorder != nil {
			d.recorder.EmailFailed()
		}
		return false
	}
}

// Close deja de aceptar mensajes y espera a que se envíen los pendientes.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for msg := range d.queue {
		d.deliver(msg)
	}
}

func (d *Dispatcher) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.sender.Send(ctx, msg); err != nil {
		d.logger.Error("send email failed",
			zap.Error(err),
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
		)
		if d.recorder != nil {
			d.recorder.EmailFailed()
		}
		return
	}
	d.logger.Info("email sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	if d.recorder != nil {
		d.recorder.EmailSent()
	}
}
