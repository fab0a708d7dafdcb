package notify

// Hub bundles the staleness registry and the event worker behind the
// interface mutation services notify through.
type Hub struct {
	worker *Worker
	reval  *Revalidator
}

func NewHub(worker *Worker, reval *Revalidator) *Hub {
	return &Hub{worker: worker, reval: reval}
}

func (h *Hub) Invalidate(path string) {
	h.reval.Invalidate(path)
}

func (h *Hub) Record(eventType string, data map[string]string) {
	h.worker.Log(NewEvent(WithType(eventType), WithData(data)))
}
