package agent

import "context"

// Session is the conversational collaborator boundary: the external
// STT/LLM/TTS pipeline that produces the spoken conversation. The
// orchestrator never sees audio; it only asks the session to speak a line.
type Session interface {
	// GenerateReply speaks one line driven by the given instructions.
	GenerateReply(ctx context.Context, instructions string) error
}

// SessionFactory constructs a session for one call. Instructions are fixed
// at construction time.
type SessionFactory func(instructions string) (Session, error)

// Job identifies the worker job this process was dispatched for.
type Job struct {
	RoomName string
	// Metadata is the raw dispatch metadata JSON; empty for inbound jobs.
	Metadata string
}

// Instruction lines used when the conversational pipeline needs a nudge.
const (
	// DefaultInstructions applies when the dispatch carried no custom ones.
	DefaultInstructions = "You are a helpful voice AI assistant making an outbound phone call."

	// greetingInstructions opens an inbound call; on outbound calls the
	// callee speaks first.
	greetingInstructions = "Greet the user and offer your assistance."

	// voicemailInstructions is spoken when an answering machine picks up.
	voicemailInstructions = "Leave a voicemail message letting the user know you'll call back later."
)
