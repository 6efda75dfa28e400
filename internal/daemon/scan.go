package daemon

import (
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// RootKind classifies a scanned root's trust level.
type RootKind string

const (
	RootTrustedCanonical RootKind = "trusted-canonical"
	RootManagedLegacy    RootKind = "managed-legacy"
	RootUnsafeTmp        RootKind = "unsafe-tmp"
	RootUnknown          RootKind = "unknown"
)

// ClassifyRoot labels a control root's trust level relative to the
// configured canonical root.
func ClassifyRoot(root, canonicalRoot string) RootKind {
	if samePath(root, canonicalRoot) {
		return RootTrustedCanonical
	}
	if isUnderTmp(root) {
		return RootUnsafeTmp
	}
	if root != "" {
		return RootManagedLegacy
	}
	return RootUnknown
}

func samePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}

func isUnderTmp(root string) bool {
	clean := filepath.Clean(root)
	for _, prefix := range []string{"/tmp", "/var/tmp", "/private/tmp"} {
		if clean == prefix || strings.HasPrefix(clean, prefix+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Candidate is one scanned daemon record plus its classification.
type Candidate struct {
	Path       string
	Root       string
	RootKind   RootKind
	Record     *Record // nil if unreadable or missing
	Liveness   LivenessState
	ParseError error
}

// Scan reads every candidate record path and classifies it. Missing files
// are simply omitted — they carry no information.
func Scan(canonicalRoot string, legacyRoots []string) []Candidate {
	var out []Candidate

	roots := append([]string{canonicalRoot}, legacyRoots...)
	for _, root := range roots {
		path := CanonicalRecordPath(root)
		rec, err := ReadRecord(path)
		if err != nil {
			if isNotExistErr(err) {
				continue
			}
			out = append(out, Candidate{
				Path: path, Root: root, RootKind: ClassifyRoot(root, canonicalRoot),
				Liveness: Unreadable, ParseError: err,
			})
			continue
		}
		cand := Candidate{
			Path: path, Root: root, RootKind: ClassifyRoot(root, canonicalRoot), Record: rec,
		}
		cand.Liveness = ClassifyRecord(rec)
		out = append(out, cand)
	}
	return out
}

func isNotExistErr(err error) bool {
	return strings.Contains(err.Error(), "no such file") || strings.Contains(err.Error(), "not exist")
}

// identityKey groups candidates by (daemonId, pid).
func identityKey(c Candidate) string {
	if c.Record == nil {
		return ""
	}
	return c.Record.DaemonID + "\x00" + itoa(c.Record.PID)
}

// Group is a set of live candidates sharing one (daemonId, pid) identity.
type Group struct {
	Identity       string
	Candidates     []Candidate
	Representative Candidate
}

// GroupLive groups live candidates by identity and picks a representative
// per group: the canonical-rooted one if present, else the newest
// parseable startedAt, else the lexicographically smallest path.
func GroupLive(candidates []Candidate) []Group {
	byIdentity := map[string][]Candidate{}
	var order []string
	for _, c := range candidates {
		if c.Liveness != Live {
			continue
		}
		key := identityKey(c)
		if _, ok := byIdentity[key]; !ok {
			order = append(order, key)
		}
		byIdentity[key] = append(byIdentity[key], c)
	}

	groups := make([]Group, 0, len(order))
	for _, key := range order {
		cands := byIdentity[key]
		groups = append(groups, Group{
			Identity:       key,
			Candidates:     cands,
			Representative: pickRepresentative(cands),
		})
	}
	return groups
}

func pickRepresentative(cands []Candidate) Candidate {
	for _, c := range cands {
		if c.RootKind == RootTrustedCanonical {
			return c
		}
	}
	best := cands[0]
	bestTime := startedAtOrZero(best)
	for _, c := range cands[1:] {
		t := startedAtOrZero(c)
		if t.After(bestTime) {
			best, bestTime = c, t
			continue
		}
		if t.Equal(bestTime) && c.Path < best.Path {
			best = c
		}
	}
	return best
}

func startedAtOrZero(c Candidate) time.Time {
	if c.Record == nil {
		return time.Time{}
	}
	return c.Record.StartedAt
}

// sortedPaths returns candidate paths sorted for deterministic reporting.
func sortedPaths(cands []Candidate) []string {
	paths := make([]string, len(cands))
	for i, c := range cands {
		paths[i] = c.Path
	}
	sort.Strings(paths)
	return paths
}
