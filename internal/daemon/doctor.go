package daemon

import (
	"time"
)

// FindingCode enumerates the doctor findings this package can emit.
type FindingCode string

const (
	FindingDuplicateLiveDaemonRecords FindingCode = "DUPLICATE_LIVE_DAEMON_RECORDS"
	FindingConflictingIdentities      FindingCode = "CONFLICTING_DAEMON_IDENTITIES"
	FindingStaleDaemonRecord          FindingCode = "STALE_DAEMON_RECORD"
	FindingUnreadableDaemonRecord     FindingCode = "UNREADABLE_DAEMON_RECORD"
	FindingUnsafeCanonicalRecord      FindingCode = "UNSAFE_CANONICAL_RECORD"
	FindingMissingCanonicalRecord     FindingCode = "MISSING_CANONICAL_RECORD"
	FindingPromotableLegacyRecord     FindingCode = "PROMOTABLE_LEGACY_RECORD"
	FindingCleanableLegacyControl     FindingCode = "CLEANABLE_LEGACY_CONTROL_FILE"
	FindingDatabaseCapability         FindingCode = "DATABASE_CAPABILITY"
)

// RepairAction enumerates the safe repairs doctor can apply.
type RepairAction string

const (
	RepairQuarantineStale      RepairAction = "QUARANTINE_STALE_DAEMON_RECORD"
	RepairQuarantineUnreadable RepairAction = "QUARANTINE_UNREADABLE_DAEMON_RECORD"
	RepairQuarantineDuplicate  RepairAction = "QUARANTINE_DUPLICATE_DAEMON_RECORDS"
	RepairQuarantineUnsafe     RepairAction = "QUARANTINE_UNSAFE_CANONICAL_RECORD"
	RepairPromoteLegacy        RepairAction = "PROMOTE_LEGACY_TO_CANONICAL"
	RepairQuarantineLegacy     RepairAction = "QUARANTINE_CLEANABLE_LEGACY_CONTROL_FILE"
)

// Severity mirrors the doctor CLI contract's finding severities.
type Severity string

const (
	SeverityOK    Severity = "ok"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Finding is one diagnostic result.
type Finding struct {
	Code     FindingCode `json:"code"`
	Severity Severity    `json:"severity"`
	Message  string      `json:"message"`
	Paths    []string    `json:"paths,omitempty"`
}

// Recommendation pairs a repair action with the paths it would act on.
type Recommendation struct {
	Action RepairAction `json:"action"`
	Paths  []string     `json:"paths,omitempty"`
}

// Applied records a repair that was actually carried out.
type Applied struct {
	Action  RepairAction `json:"action"`
	Path    string       `json:"path"`
	NewPath string       `json:"new_path,omitempty"`
}

// OverallStatus summarises a set of findings: error if any is error, else
// warn if any is warn, else ok.
func OverallStatus(findings []Finding) Severity {
	status := SeverityOK
	for _, f := range findings {
		if f.Severity == SeverityError {
			return SeverityError
		}
		if f.Severity == SeverityWarn {
			status = SeverityWarn
		}
	}
	return status
}

// Diagnose scans the canonical and legacy control roots and returns the
// findings and recommended (not yet applied) repairs. It never mutates the
// filesystem.
func Diagnose(canonicalRoot string, legacyRoots []string) ([]Finding, []Recommendation) {
	candidates := Scan(canonicalRoot, legacyRoots)

	var findings []Finding
	var recs []Recommendation

	var canonicalCandidate *Candidate
	for i := range candidates {
		if candidates[i].RootKind == RootTrustedCanonical {
			canonicalCandidate = &candidates[i]
			break
		}
	}

	for _, c := range candidates {
		switch c.Liveness {
		case Unreadable:
			findings = append(findings, Finding{
				Code: FindingUnreadableDaemonRecord, Severity: SeverityWarn,
				Message: "daemon record could not be parsed", Paths: []string{c.Path},
			})
			recs = append(recs, Recommendation{Action: RepairQuarantineUnreadable, Paths: []string{c.Path}})
		case Stale:
			findings = append(findings, Finding{
				Code: FindingStaleDaemonRecord, Severity: SeverityWarn,
				Message: "daemon record's pid is not live or failed identity verification", Paths: []string{c.Path},
			})
			recs = append(recs, Recommendation{Action: RepairQuarantineStale, Paths: []string{c.Path}})
		}
	}

	if canonicalCandidate != nil && canonicalCandidate.Record != nil {
		if ClassifyRoot(canonicalCandidate.Record.ControlRoot, canonicalRoot) != RootTrustedCanonical {
			findings = append(findings, Finding{
				Code: FindingUnsafeCanonicalRecord, Severity: SeverityError,
				Message: "canonical daemon record points outside the canonical control root",
				Paths:   []string{canonicalCandidate.Path},
			})
			recs = append(recs, Recommendation{Action: RepairQuarantineUnsafe, Paths: []string{canonicalCandidate.Path}})
		}
	} else {
		findings = append(findings, Finding{
			Code: FindingMissingCanonicalRecord, Severity: SeverityOK,
			Message: "no canonical daemon record present",
		})
	}

	groups := GroupLive(candidates)
	for _, g := range groups {
		if len(g.Candidates) < 2 {
			continue
		}
		findings = append(findings, Finding{
			Code: FindingDuplicateLiveDaemonRecords, Severity: SeverityWarn,
			Message: "multiple live daemon records share the same identity", Paths: sortedPaths(g.Candidates),
		})
		var toQuarantine []string
		for _, c := range g.Candidates {
			if c.Path != g.Representative.Path {
				toQuarantine = append(toQuarantine, c.Path)
			}
		}
		if len(toQuarantine) > 0 {
			recs = append(recs, Recommendation{Action: RepairQuarantineDuplicate, Paths: toQuarantine})
		}
	}

	distinctIdentities := map[string]struct{}{}
	for _, g := range groups {
		distinctIdentities[g.Identity] = struct{}{}
	}
	if len(distinctIdentities) >= 2 {
		var allPaths []string
		for _, g := range groups {
			allPaths = append(allPaths, sortedPaths(g.Candidates)...)
		}
		findings = append(findings, Finding{
			Code: FindingConflictingIdentities, Severity: SeverityError,
			Message: "two or more distinct daemon identities are live simultaneously; no automatic repair",
			Paths:   allPaths,
		})
	}

	if canonicalCandidate == nil && len(distinctIdentities) == 1 {
		for _, g := range groups {
			rep := g.Representative
			if rep.RootKind == RootManagedLegacy && rep.Record != nil && samePath(rep.Record.ControlRoot, canonicalRoot) {
				findings = append(findings, Finding{
					Code: FindingPromotableLegacyRecord, Severity: SeverityWarn,
					Message: "a live managed-legacy record can be promoted to canonical", Paths: []string{rep.Path},
				})
				recs = append(recs, Recommendation{Action: RepairPromoteLegacy, Paths: []string{rep.Path}})
			}
		}
	}

	return findings, recs
}

// Apply carries out the safe subset of recommendations: quarantine actions
// and legacy promotion. Conflict findings (FindingConflictingIdentities)
// never generate a recommendation, so Apply never touches them.
func Apply(recs []Recommendation, canonicalRoot string, now time.Time) []Applied {
	var applied []Applied
	for _, rec := range recs {
		switch rec.Action {
		case RepairQuarantineStale:
			for _, p := range rec.Paths {
				staleRec, err := ReadRecord(p)
				pid := 0
				if err == nil && staleRec != nil {
					pid = staleRec.PID
				}
				newPath, err := Quarantine(p, ReasonStale, now, pid)
				if err == nil {
					applied = append(applied, Applied{Action: RepairQuarantineStale, Path: p, NewPath: newPath})
				}
			}
		case RepairQuarantineUnreadable:
			for _, p := range rec.Paths {
				newPath, err := Quarantine(p, ReasonCorrupt, now, 0)
				if err == nil {
					applied = append(applied, Applied{Action: RepairQuarantineUnreadable, Path: p, NewPath: newPath})
				}
			}
		case RepairQuarantineDuplicate:
			for _, p := range rec.Paths {
				newPath, err := Quarantine(p, ReasonDuplicate, now, 0)
				if err == nil {
					applied = append(applied, Applied{Action: RepairQuarantineDuplicate, Path: p, NewPath: newPath})
				}
			}
		case RepairQuarantineUnsafe:
			for _, p := range rec.Paths {
				newPath, err := Quarantine(p, ReasonStale, now, 0)
				if err == nil {
					applied = append(applied, Applied{Action: RepairQuarantineUnsafe, Path: p, NewPath: newPath})
				}
			}
		case RepairQuarantineLegacy:
			for _, p := range rec.Paths {
				newPath, err := Quarantine(p, ReasonLegacy, now, 0)
				if err == nil {
					applied = append(applied, Applied{Action: RepairQuarantineLegacy, Path: p, NewPath: newPath})
				}
			}
		case RepairPromoteLegacy:
			for _, p := range rec.Paths {
				legacyRec, err := ReadRecord(p)
				if err != nil || legacyRec == nil {
					continue
				}
				canonicalPath := CanonicalRecordPath(canonicalRoot)
				legacyRec.ControlRoot = canonicalRoot
				legacyRec.ControlFilePath = CanonicalControlPath(canonicalRoot)
				if err := WriteRecord(canonicalPath, legacyRec); err != nil {
					continue
				}
				applied = append(applied, Applied{Action: RepairPromoteLegacy, Path: p, NewPath: canonicalPath})
			}
		}
	}
	return applied
}

// CleanableLegacyControlFiles finds legacy control files that exactly match
// the canonical control file's content shape and are not referenced by any
// live daemon (so deleting them can't disrupt a running process).
func CleanableLegacyControlFiles(canonicalControlPath string, legacyControlPaths []string, liveControlPaths map[string]struct{}) ([]Finding, []Recommendation) {
	canonical, err := ReadControlState(canonicalControlPath)
	if err != nil {
		return nil, nil
	}
	var findings []Finding
	var recs []Recommendation
	for _, p := range legacyControlPaths {
		if _, live := liveControlPaths[p]; live {
			continue
		}
		legacy, err := ReadControlState(p)
		if err != nil {
			continue
		}
		if sameControlShape(canonical, legacy) {
			findings = append(findings, Finding{
				Code: FindingCleanableLegacyControl, Severity: SeverityOK,
				Message: "legacy control file matches canonical and is safe to quarantine", Paths: []string{p},
			})
			recs = append(recs, Recommendation{Action: RepairQuarantineLegacy, Paths: []string{p}})
		}
	}
	return findings, recs
}
