package domain

// Kind classifies a push delivery after consulting the video history.
type Kind int

const (
	// KindUpload is a video seen for the first time.
	KindUpload Kind = iota
	// KindEdit is a video that was already in the history.
	KindEdit
	// KindDelete is a deletion entry. Deletions never touch the history.
	KindDelete
	// KindAny matches every kind. It is a registration-time filter only
	// and is never assigned to an event.
	KindAny
)

func (k Kind) String() string {
	switch k {
	case KindUpload:
		return "upload"
	case KindEdit:
		return "edit"
	case KindDelete:
		return "delete"
	case KindAny:
		return "any"
	default:
		return "unknown"
	}
}
