package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"qcflow/internal/store"
)

var titleCaser = cases.Title(language.English)

// stageDisplay renders a workflow stage for humans: "in_process" becomes
// "In Process".
func stageDisplay(stage store.Stage) string {
	return titleCaser.String(strings.ReplaceAll(string(stage), "_", " "))
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func dash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02")
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

// resolveJob accepts either a numeric id or a job number like JOB00042.
func resolveJob(ctx context.Context, st *store.Store, arg string) (*store.Job, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return nil, errors.New("job id or number is required")
	}
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		job, err := st.GetJob(ctx, id)
		if err != nil {
			return nil, err
		}
		if job == nil {
			return nil, fmt.Errorf("no job with id %d", id)
		}
		return job, nil
	}
	job, err := st.GetJobByNumber(ctx, strings.ToUpper(arg))
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("no job %s", strings.ToUpper(arg))
	}
	return job, nil
}

func parseDateFlag(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", value)
	}
	return &t, nil
}

// toleranceFlag holds an optional signed tolerance. Cobra has no *float64
// flag, so absence is tracked explicitly.
type toleranceFlag struct {
	set   bool
	value float64
}

func (f *toleranceFlag) String() string {
	if !f.set {
		return ""
	}
	return strconv.FormatFloat(f.value, 'g', -1, 64)
}

func (f *toleranceFlag) Set(raw string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid tolerance %q", raw)
	}
	f.value = v
	f.set = true
	return nil
}

func (f *toleranceFlag) Type() string { return "float" }

func (f *toleranceFlag) ptr() *float64 {
	if !f.set {
		return nil
	}
	v := f.value
	return &v
}
