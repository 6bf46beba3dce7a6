package notification

// Log is an append-only, sequence-numbered list of notifications.
// Sequence numbers start at 1 and have no gaps.
//
// Log is not safe for concurrent use; the ledger guards it with its own lock.
type Log struct {
	entries []Notification
}

// Append assigns the next sequence number to n, stores it and returns the
// stored copy.
func (l *Log) Append(n Notification) Notification {
	n.Seq = l.NextSeq()
	l.entries = append(l.entries, n)
	return n
}

// Restore appends already-sequenced notifications, e.g. when replaying a
// persisted journal. Entries whose Seq is not the next expected one are
// skipped, which makes replaying an overlapping range harmless.
func (l *Log) Restore(ns ...Notification) {
	for _, n := range ns {
		if n.Seq != l.NextSeq() {
			continue
		}
		l.entries = append(l.entries, n)
	}
}

// NextSeq returns the sequence number the next Append will assign.
func (l *Log) NextSeq() uint64 {
	return uint64(len(l.entries)) + 1
}

// Len returns the number of notifications in the log.
func (l *Log) Len() int { return len(l.entries) }

// Since returns up to limit notifications with Seq > after, oldest first.
// A limit <= 0 returns everything after the cursor.
func (l *Log) Since(after uint64, limit int) []Notification {
	if after >= uint64(len(l.entries)) {
		return nil
	}
	rest := l.entries[after:]
	if limit > 0 && limit < len(rest) {
		rest = rest[:limit]
	}
	out := make([]Notification, len(rest))
	copy(out, rest)
	return out
}
