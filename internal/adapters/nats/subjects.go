package natsadapter

import (
	"fmt"
	"strconv"
	"strings"
)

// Subject layout:
//
//	viz.frame.<runID>.<day>    computed heat frames
//	viz.run.<runID>.ingested   a run finished loading
const (
	FramesWildcard      = "viz.frame.>"
	RunIngestedWildcard = "viz.run.*.ingested"
)

// FrameSubject is the subject a frame of runID/day is published on.
func FrameSubject(runID string, day int) string {
	return "viz.frame." + runID + "." + strconv.Itoa(day)
}

// RunFramesSubject matches every frame of one run.
func RunFramesSubject(runID string) string {
	return "viz.frame." + runID + ".*"
}

// RunIngestedSubject is the subject announcing runID.
func RunIngestedSubject(runID string) string {
	return "viz.run." + runID + ".ingested"
}

// ParseFrameSubject splits a frame subject into run ID and day.
func ParseFrameSubject(subject string) (runID string, day int, err error) {
	parts := strings.Split(subject, ".")
	if len(parts) != 4 || parts[0] != "viz" || parts[1] != "frame" {
		return "", 0, fmt.Errorf("not a frame subject: %q", subject)
	}
	day, err = strconv.Atoi(parts[3])
	if err != nil {
		return "", 0, fmt.Errorf("frame subject %q: %w", subject, err)
	}
	return parts[2], day, nil
}

// validToken reports whether s can be used as a single subject token.
func validToken(s string) bool {
	return s != "" && !strings.ContainsAny(s, ".*> \t\r\n")
}

// ValidRunID reports whether id can appear in a subject.
func ValidRunID(id string) bool {
	return validToken(id)
}
