package detection

// minHighSnapshots is the history length required before a field can be
// rated HIGH.
const minHighSnapshots = 5

// score rates a field that changed in changes of comparable consecutive
// pairs, within a history of snapshotCount snapshots.
//
//	HIGH    changed in every pair and snapshotCount >= 5
//	MEDIUM  changed in at least two pairs and in at least half of them
//	LOW     anything else, typically a single observed change
func score(changes, comparable, snapshotCount int) Confidence {
	switch {
	case comparable > 0 && changes >= comparable && snapshotCount >= minHighSnapshots:
		return ConfidenceHigh
	case changes >= 2 && changes*2 >= comparable:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// observation collects the per-snapshot values of one reported path.
type observation struct {
	path   string
	values []value
}

// value is one snapshot's value at a path. Absent values take part in change
// counting but never become samples.
type value struct {
	present bool
	// key is the canonical form used for comparison.
	key string
	// display is the form shown as a sample value.
	display string
}

func (v value) equal(o value) bool {
	return v.present == o.present && v.key == o.key
}

func (o observation) candidate(snapshotCount int) Candidate {
	changes := 0
	for i := 1; i < len(o.values); i++ {
		if !o.values[i].equal(o.values[i-1]) {
			changes++
		}
	}

	samples := make([]string, 0, MaxSampleValues)
	for _, v := range o.values {
		if len(samples) == MaxSampleValues {
			break
		}
		if !v.present || contains(samples, v.display) {
			continue
		}
		samples = append(samples, v.display)
	}

	return Candidate{
		FieldPath:       o.path,
		Confidence:      score(changes, len(o.values)-1, snapshotCount),
		SampleValues:    samples,
		OccurrenceCount: changes,
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
