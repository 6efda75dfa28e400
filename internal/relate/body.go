package relate

import (
	"regexp"
	"strconv"
	"strings"
)

// blockedBySectionRe locates a "Blocked by" heading, case-insensitive,
// capturing everything up to the next heading or end of body.
var blockedBySectionRe = regexp.MustCompile(`(?is)##*\s*blocked\s+by\s*\n(.*?)(\n##|\z)`)

// blockedByItemRe matches one checklist item referencing an issue, either
// "owner/repo#123" or "#123".
var blockedByItemRe = regexp.MustCompile(`-\s*\[[ xX]\]\s*(?:([\w.-]+/[\w.-]+))?#(\d+)`)

// ParseBodyBlockedBy extracts body-derived blocked_by signals from an issue
// body's "Blocked by" section. Refs without an explicit owner/repo resolve
// against ownRepo. Every extracted signal starts as state=unknown, since the
// body alone can't say whether the referenced issue is open or closed.
func ParseBodyBlockedBy(body, ownRepo string) []Signal {
	m := blockedBySectionRe.FindStringSubmatch(body)
	if m == nil {
		return nil
	}
	section := m[1]

	var signals []Signal
	for _, item := range blockedByItemRe.FindAllStringSubmatch(section, -1) {
		repo := item[1]
		if repo == "" {
			repo = ownRepo
		}
		num, err := strconv.Atoi(item[2])
		if err != nil {
			continue
		}
		signals = append(signals, Signal{
			Source: SourceBody,
			Kind:   KindBlockedBy,
			State:  StateUnknown,
			Ref:    repo + "#" + strconv.Itoa(num),
		})
	}
	return signals
}

// ParseRef splits a "owner/repo#N" or "#N" ref into its components,
// resolving a bare "#N" against ownRepo.
func ParseRef(ref, ownRepo string) (repo string, number int, ok bool) {
	parts := strings.SplitN(ref, "#", 2)
	if len(parts) != 2 {
		return "", 0, false
	}
	repo = parts[0]
	if repo == "" {
		repo = ownRepo
	}
	num, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, false
	}
	return repo, num, true
}
