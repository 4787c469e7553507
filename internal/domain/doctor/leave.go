package doctor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rapidcare/rapidcare/internal/platform/apperr"
	"github.com/rapidcare/rapidcare/internal/platform/auth"
	"github.com/rapidcare/rapidcare/internal/platform/docstore"
	"github.com/rapidcare/rapidcare/internal/platform/realtime"
)

// RequestLeave files a pending leave request and notifies the hospital.
func (s *Service) RequestLeave(ctx context.Context, actor auth.Identity, doctorID string, in LeaveInput) (*Leave, error) {
	if !actor.Owns(doctorID) {
		return nil, apperr.Forbidden("Forbidden")
	}
	d, err := s.Get(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if !validLeaveTypes[in.LeaveType] {
		return nil, apperr.Validation("invalid leave type: %s", in.LeaveType)
	}
	if in.Reason == "" {
		return nil, apperr.Validation("reason is required")
	}
	start, err := parseTime(in.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseTime(in.EndDate)
	if err != nil {
		return nil, err
	}
	if start.After(end) {
		return nil, apperr.Validation("End date must be after start date")
	}

	now := s.now()
	l := &Leave{
		LeaveID:    fmt.Sprintf("LEAVE-%s-%d", d.DoctorID, now.UnixMilli()),
		DoctorID:   d.DoctorID,
		HospitalID: d.HospitalID,
		DoctorName: d.Name,
		StartDate:  start,
		EndDate:    end,
		LeaveType:  in.LeaveType,
		Reason:     in.Reason,
		Status:     LeavePending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.leaves.Create(ctx, l); err != nil {
		if errors.Is(err, docstore.ErrDuplicateKey) {
			return nil, apperr.Conflict("Leave request already exists")
		}
		return nil, err
	}

	s.events.ToScope(realtime.HospitalScope(d.HospitalID), realtime.EventLeaveRequested, map[string]interface{}{
		"leaveId":    l.LeaveID,
		"doctorId":   l.DoctorID,
		"doctorName": l.DoctorName,
		"leaveType":  l.LeaveType,
		"startDate":  l.StartDate,
		"endDate":    l.EndDate,
	})
	return l, nil
}

// Leaves lists a doctor's requests for the doctor or their hospital.
func (s *Service) Leaves(ctx context.Context, actor auth.Identity, doctorID string) ([]*Leave, error) {
	d, err := s.Get(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, d) {
		return nil, apperr.Forbidden("Forbidden")
	}
	return s.leaves.ListByDoctor(ctx, d.DoctorID)
}

// DecideLeave approves or rejects a request. The decision is broadcast to
// every connection.
func (s *Service) DecideLeave(ctx context.Context, actor auth.Identity, leaveID string, in LeaveDecision) (*Leave, error) {
	if in.Status != LeaveApproved && in.Status != LeaveRejected {
		return nil, apperr.Validation("Invalid status")
	}
	l, err := s.leaves.Get(ctx, leaveID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, apperr.NotFound("Leave request not found")
	}
	if err != nil {
		return nil, err
	}
	if !actor.Owns(l.HospitalID) {
		return nil, apperr.Forbidden("Forbidden")
	}

	now := s.now()
	l.Status = in.Status
	l.ApprovedBy = actor.Ref
	l.ApprovedAt = &now
	if in.Status == LeaveRejected && in.RejectionReason != "" {
		l.RejectionReason = in.RejectionReason
	}
	if in.Remarks != "" {
		l.Remarks = in.Remarks
	}
	l.UpdatedAt = now
	if err := s.leaves.Update(ctx, l); err != nil {
		return nil, err
	}

	s.events.ToAll(realtime.EventLeaveUpdated, map[string]interface{}{
		"leaveId":    l.LeaveID,
		"doctorId":   l.DoctorID,
		"status":     l.Status,
		"approvedBy": l.ApprovedBy,
	})
	return l, nil
}

func parseTime(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, apperr.Validation("invalid date: %q", v)
	}
	return t, nil
}
