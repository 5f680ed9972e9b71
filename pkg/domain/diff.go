package domain

// Snapshot is a serializable view of a live engagement.
type Snapshot struct {
	EngagementID string                 `json:"engagement_id"`
	Role         string                 `json:"role"`
	CurrentState string                 `json:"current_state"`
	Statuses     map[string]StateStatus `json:"statuses,omitempty"`
	History      []Turn                 `json:"history,omitempty"`
	Terminated   bool                   `json:"terminated"`
}

// SnapshotDiff represents the changes between two snapshots.
// It is designed to be serialized to JSON for partial updates on the client.
type SnapshotDiff struct {
	// EngagementID is always present to identify the target.
	EngagementID string `json:"engagement_id"`

	CurrentState *string `json:"current_state,omitempty"`

	// Statuses contains only states whose status changed or appeared.
	Statuses map[string]StateStatus `json:"statuses,omitempty"`

	// History contains turns appended since the old snapshot.
	History *HistoryDelta `json:"history,omitempty"`

	Terminated *bool `json:"terminated,omitempty"`
}

// HistoryDelta represents turns appended to the conversation history.
type HistoryDelta struct {
	Appended []Turn `json:"appended"`
}

// Diff calculates the difference between oldSnap and newSnap.
// If oldSnap is nil, it returns a diff representing the entire newSnap (initial load).
// It returns nil when nothing changed.
func Diff(oldSnap, newSnap *Snapshot) *SnapshotDiff {
	if newSnap == nil {
		return nil
	}

	diff := &SnapshotDiff{
		EngagementID: newSnap.EngagementID,
	}

	if oldSnap == nil || oldSnap.CurrentState != newSnap.CurrentState {
		diff.CurrentState = &newSnap.CurrentState
	}
	if oldSnap == nil {
		if newSnap.Terminated {
			diff.Terminated = &newSnap.Terminated
		}
	} else if oldSnap.Terminated != newSnap.Terminated {
		diff.Terminated = &newSnap.Terminated
	}

	diff.Statuses = diffStatuses(oldSnap, newSnap)
	diff.History = diffHistory(oldSnap, newSnap)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffStatuses(old, new *Snapshot) map[string]StateStatus {
	delta := make(map[string]StateStatus)
	for name, status := range new.Statuses {
		if old == nil || old.Statuses[name] != status {
			delta[name] = status
		}
	}
	if len(delta) == 0 {
		return nil
	}
	return delta
}

// diffHistory assumes the history is append-only.
func diffHistory(old, new *Snapshot) *HistoryDelta {
	if len(new.History) == 0 {
		return nil
	}
	if old == nil {
		return &HistoryDelta{Appended: new.History}
	}
	if len(new.History) > len(old.History) {
		return &HistoryDelta{Appended: new.History[len(old.History):]}
	}
	return nil
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SnapshotDiff) IsEmpty() bool {
	return d.CurrentState == nil &&
		d.Terminated == nil &&
		len(d.Statuses) == 0 &&
		d.History == nil
}
