package service

// Event names pushed over the realtime channel. Customers in a job room and
// the global technician pool subscribe to these.
const (
	EventJobRequested  = "job:requested"
	EventJobAccepted   = "job:accepted"
	EventJobArrived    = "job:arrived"
	EventJobInProgress = "job:in_progress"
	EventServiceEnded  = "job:service_ended"
	EventJobCompleted  = "job:completed"
	EventJobCancelled  = "job:cancelled"

	EventPaymentSuccess = "payment:success"
)

// Broadcaster pushes realtime events to connected clients. The hub in
// internal/ws implements it; services treat delivery as best effort and never
// fail an operation because a push was dropped.
type Broadcaster interface {
	// BroadcastGlobal sends an event to every connected client.
	BroadcastGlobal(event string, payload any)

	// BroadcastToJob sends an event to clients subscribed to the job's room.
	BroadcastToJob(jobID, event string, payload any)

	// BroadcastToUser sends an event to the connections identified as userID.
	BroadcastToUser(userID, event string, payload any)
}
