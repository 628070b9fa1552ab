package lobby

import (
	"github.com/strangerchat/server/internal/report"
	"github.com/strangerchat/server/internal/session"
)

// Events receives lifecycle notifications for fan-out to other processes.
// Implementations are called with the lobby lock held and must not block.
type Events interface {
	SessionCreated(sess *session.Session)
	SessionEnded(sess *session.Session, cause string)
	ReportFiled(r report.Report, count int)
	EndpointBanned(endpoint string, count int)
}

type nopEvents struct{}

func (nopEvents) SessionCreated(*session.Session)       {}
func (nopEvents) SessionEnded(*session.Session, string) {}
func (nopEvents) ReportFiled(report.Report, int)        {}
func (nopEvents) EndpointBanned(string, int)            {}
