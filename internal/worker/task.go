// task.go - the JSON task envelope pushed onto the translate queue (C14).

package worker

// Task is the unit of work a producer (C15 request orchestration) enqueues
// and a Worker dequeues. It carries only the id needed to look up the rest
// of the job's state in the job store — the queue itself holds no payload.
type Task struct {
	TranslateID string `json:"translate_id"`
}
