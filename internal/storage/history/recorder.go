package history

import (
	"fmt"
	"log/slog"
	"net"
	"time"

	"mcast/internal/discovery"
	"mcast/internal/intent"
	"mcast/internal/util/logger/sl"
)

// Recorder is a discovery listener that saves every received datagram.
type Recorder struct {
	discovery.Adapter

	store    *Store
	endpoint string
	log      *slog.Logger
}

func NewRecorder(store *Store, endpoint string, log *slog.Logger) *Recorder {
	return &Recorder{
		Adapter:  discovery.Adapter{Log: log},
		store:    store,
		endpoint: endpoint,
		log:      log,
	}
}

func (r *Recorder) OnMessage(addr *net.UDPAddr, data []byte, in *intent.Intent) {
	const op = "history.Recorder.OnMessage"

	rec := &Record{
		ReceivedAt: time.Now(),
		Endpoint:   r.endpoint,
		Sender:     addr.String(),
		Payload:    data,
	}
	if in != nil {
		rec.Action = in.Action
		rec.Data = in.Data
		if len(in.Extras) > 0 {
			rec.Extras = make(map[string]string, len(in.Extras))
			for k, v := range in.Extras {
				rec.Extras[k] = fmt.Sprint(v)
			}
		}
	}

	if _, err := r.store.Save(rec); err != nil && r.log != nil {
		r.log.Error("failed to save record", slog.String("op", op), sl.Err(err))
	}
}
