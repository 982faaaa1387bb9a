package ipc

import (
	"context"
	"log/slog"

	"relay/internal/daemon"
	"relay/internal/logging"
)

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	if err := s.daemon.StartBatch(); err != nil {
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "batch started"
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.daemon.StopBatch()
	resp.Stopped = true
	return nil
}

func (s *service) Status(req StatusRequest, resp *StatusResponse) error {
	resp.Status = s.daemon.Status(s.ctx, req.Reports)
	return nil
}

func (s *service) Pause(_ PauseRequest, resp *PauseResponse) error {
	resp.Changed = s.daemon.Pause()
	return nil
}

func (s *service) Resume(_ ResumeRequest, resp *ResumeResponse) error {
	resp.Changed = s.daemon.Resume()
	return nil
}

func (s *service) Skip(_ SkipRequest, resp *SkipResponse) error {
	resp.InCooldown = s.daemon.Status(s.ctx, 0).Workflow.Control.InCooldown
	s.daemon.Skip()
	return nil
}

func (s *service) SetCooldown(req SetCooldownRequest, resp *SetCooldownResponse) error {
	if err := s.daemon.SetCooldown(req.Seconds); err != nil {
		return err
	}
	resp.Seconds = req.Seconds
	return nil
}

func (s *service) QueueList(_ QueueListRequest, resp *QueueListResponse) error {
	items, err := s.daemon.QueueList(s.ctx)
	if err != nil {
		return err
	}
	resp.Items = items
	return nil
}

func (s *service) QueueAdd(req QueueAddRequest, resp *QueueAddResponse) error {
	added, err := s.daemon.QueueAdd(s.ctx, req.Lines...)
	if err != nil {
		return err
	}
	resp.Added = added
	return nil
}

func (s *service) History(req HistoryRequest, resp *HistoryResponse) error {
	outcomes, err := s.daemon.History(s.ctx, req.Limit)
	if err != nil {
		return err
	}
	resp.Outcomes = outcomes
	return nil
}

func (s *service) Send(req SendRequest, resp *SendResponse) error {
	res, err := s.daemon.Send(s.ctx, req.Locator, req.Title)
	if err != nil {
		return err
	}
	*resp = *NewSendResponse(res)
	if !resp.Delivered {
		s.logger.Debug("send over IPC failed", logging.String("error_kind", resp.ErrorKind))
	}
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
