package model

// Verdict is a grader-defined result record for one user and one problem.
// Only the details and warnings fields are interpreted here.
type Verdict map[string]any

// Results maps username to problem name to verdict, as written by the grader
type Results map[string]map[string]Verdict

// RedactFor returns a copy of the results as the viewer may see them.
// Admins see everything; everyone else loses the details and warnings of
// every other user's verdicts. The receiver is not modified.
func (r Results) RedactFor(v Viewer) Results {
	out := make(Results, len(r))
	for user, problems := range r {
		redact := !v.Admin && user != v.Username
		copied := make(map[string]Verdict, len(problems))
		for problem, verdict := range problems {
			if !redact {
				copied[problem] = verdict
				continue
			}
			c := make(Verdict, len(verdict))
			for k, val := range verdict {
				c[k] = val
			}
			c["details"] = []any{}
			delete(c, "warnings")
			copied[problem] = c
		}
		out[user] = copied
	}
	return out
}

// Snapshot is the world view derived in one broadcast tick
type Snapshot struct {
	Seq     uint64
	Results Results
	Tests   []string
	Users   []string
	Configs []TestInfo
}
