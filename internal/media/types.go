// Package media implements the client-side reconciliation engine that
// keeps a local photo/video library consistent with a remote content
// store using content hashes.
package media

// ItemKind classifies a local item as an image or a video.
type ItemKind int

const (
	KindImage ItemKind = iota
	KindVideo
)

// String returns the wire name of the kind, used in upload metadata.
func (k ItemKind) String() string {
	if k == KindVideo {
		return "video"
	}

	return "image"
}

// defaultExtension returns the staging file extension used when an item
// declares no usable MIME type.
func (k ItemKind) defaultExtension() string {
	if k == KindVideo {
		return ".mp4"
	}

	return ".jpg"
}

// LocalItem identifies one piece of content in the local library.
// Produced by the enumerator; immutable for the duration of a sync pass.
type LocalItem struct {
	// Identifier is a stable opaque string naming the item: the
	// NFC-normalized library-relative path.
	Identifier string
	Kind       ItemKind
	// MimeType is the declared MIME type, derived from the extension.
	// May be empty when the extension is unknown to the platform.
	MimeType string
	Size     int64
	// ModifiedAt is the file modification time in unix milliseconds.
	ModifiedAt int64
	// CapturedAt is the capture timestamp in unix milliseconds, or zero
	// when unknown.
	CapturedAt int64
	// DurationMs is the video duration, zero for images or when unknown.
	DurationMs int64
}

// BatchSyncResult is the outcome of one orchestration run. Built once per
// run and returned to the caller; never persisted.
type BatchSyncResult struct {
	// AlreadySynced maps identifiers newly confirmed present on the
	// server this run to their remote ids.
	AlreadySynced map[string]string
	// NeedsUpload lists identifiers the server reported missing, in the
	// order the server returned them.
	NeedsUpload   []string
	UploadedCount int
	FailedCount   int
	// Cancelled is set when the run observed a cancellation request at
	// any checkpoint. Partial progress is preserved, never rolled back.
	Cancelled bool
}

// Phase is the current stage of the sync engine's state machine.
// Exactly one phase is active at a time per engine; transitions are
// one-directional except returning to PhaseIdle after a terminal phase
// is acknowledged.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseHashing
	PhaseChecking
	PhaseUploading
	PhaseCompleted
	PhaseCancelled
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseHashing:
		return "hashing"
	case PhaseChecking:
		return "checking"
	case PhaseUploading:
		return "uploading"
	case PhaseCompleted:
		return "completed"
	case PhaseCancelled:
		return "cancelled"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// Terminal reports whether the phase ends a run and awaits acknowledgement.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseCancelled || p == PhaseError
}

// UploadProgress reports item-level progress through the upload phase.
type UploadProgress struct {
	Current int
	Total   int
}

// --- wire types ---

// reconcileRequest carries the full identifier→hash map for the candidate
// set. Sending the full map (not just newly hashed items) lets the server
// independently confirm or refute every previously-believed-synced item,
// which is how remote-side deletions are detected.
type reconcileRequest struct {
	Device string            `json:"device,omitempty"`
	Items  map[string]string `json:"items"`
}

// ReconcileResponse partitions the candidate set into items already
// present remotely and items the server wants uploaded.
type ReconcileResponse struct {
	AlreadySynced map[string]string `json:"already_synced"`
	NeedsUpload   []string          `json:"needs_upload"`
	// Generation is the server's store generation counter at the time of
	// the reconcile call.
	Generation int64 `json:"generation"`
}

// uploadMetadata is the JSON side-channel part of the multipart upload.
type uploadMetadata struct {
	Type         string   `json:"type"`
	DateTaken    int64    `json:"date_taken"`
	DateModified int64    `json:"date_modified"`
	DateAdded    int64    `json:"date_added"`
	Hash         string   `json:"hash"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	Altitude     *float64 `json:"altitude,omitempty"`
	GPSTimestamp *int64   `json:"gps_timestamp,omitempty"`
}

// uploadResponse is the server's reply to a successful upload.
type uploadResponse struct {
	ID string `json:"id"`
}

// RemoteItem is one entry of the remote store listing.
type RemoteItem struct {
	ID        string `json:"id"`
	Hash      string `json:"hash"`
	Type      string `json:"type"`
	Size      int64  `json:"size"`
	CreatedAt int64  `json:"created_at"`
}

// listResponse is the server's reply to a list call.
type listResponse struct {
	Items []RemoteItem `json:"items"`
}
