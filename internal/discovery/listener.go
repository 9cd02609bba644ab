package discovery

import (
	"log/slog"
	"net"

	"mcast/internal/intent"
	"mcast/internal/util/logger/sl"
)

// Listener получает уведомления от цикла обнаружения. Все методы одной
// сессии вызываются из её собственной горутины и никогда не параллельно.
type Listener interface {
	// OnStarted вызывается до открытия сокета
	OnStarted()

	// OnMessage вызывается для каждой датаграммы, которую удалось разобрать.
	// data содержит ровно полученные байты.
	OnMessage(addr *net.UDPAddr, data []byte, in *intent.Intent)

	// OnStopped вызывается ровно один раз, последним
	OnStopped()

	// OnError вызывается при неожиданной ошибке, после неё цикл остановится
	OnError(err error)
}

// Adapter реализует Listener пустыми методами. Встраивайте его, чтобы
// переопределить только нужные колбэки.
type Adapter struct {
	Log *slog.Logger
}

func (Adapter) OnStarted() {}

func (Adapter) OnMessage(*net.UDPAddr, []byte, *intent.Intent) {}

func (Adapter) OnStopped() {}

// OnError logs the cause. It never panics.
func (a Adapter) OnError(err error) {
	log := a.Log
	if log == nil {
		log = slog.Default()
	}
	log.Error("discovery error", sl.Err(err))
}

// Funcs adapts optional closures to Listener. Nil fields are skipped, a nil
// Error falls back to logging.
type Funcs struct {
	Started func()
	Message func(addr *net.UDPAddr, data []byte, in *intent.Intent)
	Stopped func()
	Error   func(err error)
	Log     *slog.Logger
}

func (f Funcs) OnStarted() {
	if f.Started != nil {
		f.Started()
	}
}

func (f Funcs) OnMessage(addr *net.UDPAddr, data []byte, in *intent.Intent) {
	if f.Message != nil {
		f.Message(addr, data, in)
	}
}

func (f Funcs) OnStopped() {
	if f.Stopped != nil {
		f.Stopped()
	}
}

func (f Funcs) OnError(err error) {
	if f.Error != nil {
		f.Error(err)
		return
	}
	Adapter{Log: f.Log}.OnError(err)
}

// Listeners fans every callback out to each listener in order.
type Listeners []Listener

func (ls Listeners) OnStarted() {
	for _, l := range ls {
		l.OnStarted()
	}
}

func (ls Listeners) OnMessage(addr *net.UDPAddr, data []byte, in *intent.Intent) {
	for _, l := range ls {
		l.OnMessage(addr, data, in)
	}
}

func (ls Listeners) OnStopped() {
	for _, l := range ls {
		l.OnStopped()
	}
}

func (ls Listeners) OnError(err error) {
	for _, l := range ls {
		l.OnError(err)
	}
}
