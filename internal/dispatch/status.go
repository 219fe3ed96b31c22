package dispatch

import (
	"fmt"
	"time"

	"wamsg/internal/template"
)

func (s *Sequencer) newJob(tpl *template.Template, mode Mode, total int, now time.Time) string {
	id := fmt.Sprintf("dp:%d:%d", now.UnixNano(), s.seq.Add(1))
	st := &JobStatus{
		ID:         id,
		TemplateID: tpl.ID,
		Template:   tpl.Name,
		Mode:       mode,
		Total:      total,
		StartedAt:  now,
		Running:    true,
	}

	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status[id] = st
	s.order = append(s.order, id)
	// Keep the history bounded; oldest entries go first.
	for len(s.order) > s.statusMax {
		delete(s.status, s.order[0])
		s.order = s.order[1:]
	}
	return id
}

func (s *Sequencer) markOpened(id string) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	if st := s.status[id]; st != nil {
		st.Opened++
	}
}

func (s *Sequencer) finish(id string, err error) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	if st := s.status[id]; st != nil {
		st.Running = false
		st.DoneAt = time.Now()
		if err != nil {
			st.Err = err.Error()
		}
	}
}

// Status returns a copy of the job record.
func (s *Sequencer) Status(id string) (JobStatus, bool) {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	st, ok := s.status[id]
	if !ok || st == nil {
		return JobStatus{}, false
	}
	return *st, true
}

// Jobs returns retained job records, newest first.
func (s *Sequencer) Jobs() []JobStatus {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	out := make([]JobStatus, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		if st := s.status[s.order[i]]; st != nil {
			out = append(out, *st)
		}
	}
	return out
}
