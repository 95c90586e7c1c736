package app

import (
	"context"
	"net/http"
	"strings"
	"time"

	"mltf/portal/internal/rbac"
	"mltf/portal/internal/store"
)

type CreateGroupInput struct {
	Acronym     string `json:"acronym"`
	Name        string `json:"name"`
	Area        string `json:"area"`
	Description string `json:"description"`
}

func (s *Service) ListGroups(ctx context.Context) ([]map[string]any, error) {
	groups, err := s.store.ListGroups(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(groups))
	for _, group := range groups {
		chairs, err := s.store.ListChairs(ctx, group.Acronym)
		if err != nil {
			return nil, err
		}
		members, err := s.store.ListMembers(ctx, group.Acronym)
		if err != nil {
			return nil, err
		}
		items = append(items, map[string]any{
			"acronym":     group.Acronym,
			"name":        group.Name,
			"area":        group.Area,
			"description": group.Description,
			"chairs":      chairPayloads(chairs),
			"memberCount": len(members),
		})
	}
	return items, nil
}

func (s *Service) GetGroup(ctx context.Context, acronym string) (map[string]any, error) {
	group, err := s.store.GetGroup(ctx, acronym)
	if err != nil {
		return nil, err
	}
	chairs, err := s.store.ListChairs(ctx, group.Acronym)
	if err != nil {
		return nil, err
	}
	members, err := s.store.ListMembers(ctx, group.Acronym)
	if err != nil {
		return nil, err
	}
	memberNames := make([]string, 0, len(members))
	for _, member := range members {
		memberNames = append(memberNames, member.UserName)
	}
	return map[string]any{
		"acronym":     group.Acronym,
		"name":        group.Name,
		"area":        group.Area,
		"description": group.Description,
		"chairs":      chairPayloads(chairs),
		"members":     memberNames,
	}, nil
}

func (s *Service) CreateGroup(ctx context.Context, session Session, input CreateGroupInput) (map[string]any, error) {
	if !s.Can(session.Role, rbac.ActionAdmin) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	acronym := strings.ToLower(strings.TrimSpace(input.Acronym))
	if acronym == "" || !isAcronym(acronym) {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "acronym must be lowercase letters and digits", nil)
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}
	inserted, err := s.store.InsertGroup(ctx, store.WorkingGroup{
		Acronym:     acronym,
		Name:        name,
		Area:        strings.TrimSpace(input.Area),
		Description: strings.TrimSpace(input.Description),
	})
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, domainError(http.StatusConflict, "NAME_COLLISION", "group acronym already exists", map[string]any{"acronym": acronym})
	}
	return s.GetGroup(ctx, acronym)
}

func (s *Service) AddChair(ctx context.Context, session Session, acronym, chairName string) (map[string]any, error) {
	if !s.Can(session.Role, rbac.ActionAdmin) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	chairName = strings.TrimSpace(chairName)
	if chairName == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "chair name is required", nil)
	}
	if _, err := s.store.GetGroup(ctx, acronym); err != nil {
		return nil, err
	}
	added, err := s.store.AddChair(ctx, acronym, chairName, session.UserName)
	if err != nil {
		return nil, err
	}
	if !added {
		return nil, domainError(http.StatusConflict, "DUPLICATE_CHAIR", "chair already assigned to this group", map[string]any{
			"group": acronym,
			"chair": chairName,
		})
	}
	if err := s.store.InsertHistory(ctx, store.HistoryEntry{
		DocumentKey: acronym,
		Action:      "add-chair",
		Actor:       session.UserName,
		Detail:      chairName,
	}); err != nil {
		return nil, err
	}
	return s.GetGroup(ctx, acronym)
}

func (s *Service) RemoveChairs(ctx context.Context, session Session, acronym string, chairNames []string) (map[string]any, error) {
	if !s.Can(session.Role, rbac.ActionAdmin) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	if _, err := s.store.GetGroup(ctx, acronym); err != nil {
		return nil, err
	}
	if len(chairNames) == 0 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "chairs is required", nil)
	}
	removed, err := s.store.RemoveChairs(ctx, acronym, chairNames)
	if err != nil {
		return nil, err
	}
	if removed > 0 {
		if err := s.store.InsertHistory(ctx, store.HistoryEntry{
			DocumentKey: acronym,
			Action:      "remove-chairs",
			Actor:       session.UserName,
			Detail:      strings.Join(chairNames, ", "),
		}); err != nil {
			return nil, err
		}
	}
	payload, err := s.GetGroup(ctx, acronym)
	if err != nil {
		return nil, err
	}
	payload["removed"] = removed
	return payload, nil
}

// SetApprovedChairs replaces the group's approved set in one shot. Every
// listed name must already hold a chair assignment in the group.
func (s *Service) SetApprovedChairs(ctx context.Context, session Session, acronym string, chairNames []string) (map[string]any, error) {
	if !s.Can(session.Role, rbac.ActionAdmin) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	if _, err := s.store.GetGroup(ctx, acronym); err != nil {
		return nil, err
	}
	chairs, err := s.store.ListChairs(ctx, acronym)
	if err != nil {
		return nil, err
	}
	assigned := make(map[string]struct{}, len(chairs))
	for _, chair := range chairs {
		assigned[chair.ChairName] = struct{}{}
	}
	missing := make([]string, 0)
	for _, name := range chairNames {
		if _, ok := assigned[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "names are not chairs of this group", map[string]any{"missing": missing})
	}
	if err := s.store.SetApprovedChairs(ctx, acronym, chairNames); err != nil {
		return nil, err
	}
	if err := s.store.InsertHistory(ctx, store.HistoryEntry{
		DocumentKey: acronym,
		Action:      "set-approved-chairs",
		Actor:       session.UserName,
		Detail:      strings.Join(chairNames, ", "),
	}); err != nil {
		return nil, err
	}
	return s.GetGroup(ctx, acronym)
}

func (s *Service) TransferChair(ctx context.Context, session Session, fromAcronym, toAcronym, chairName string) (map[string]any, error) {
	if !s.Can(session.Role, rbac.ActionAdmin) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	if _, err := s.store.GetGroup(ctx, fromAcronym); err != nil {
		return nil, err
	}
	if _, err := s.store.GetGroup(ctx, toAcronym); err != nil {
		return nil, err
	}
	moved, err := s.store.TransferChair(ctx, fromAcronym, toAcronym, strings.TrimSpace(chairName), session.UserName)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "chair is not assigned to the source group", map[string]any{
			"group": fromAcronym,
			"chair": chairName,
		})
	}
	if err := s.store.InsertHistory(ctx, store.HistoryEntry{
		DocumentKey: fromAcronym,
		Action:      "transfer-chair",
		Actor:       session.UserName,
		Detail:      strings.TrimSpace(chairName) + " to " + toAcronym,
	}); err != nil {
		return nil, err
	}
	return s.GetGroup(ctx, toAcronym)
}

func (s *Service) JoinGroup(ctx context.Context, session Session, acronym string) (map[string]any, error) {
	if _, err := s.store.GetGroup(ctx, acronym); err != nil {
		return nil, err
	}
	joined, err := s.store.JoinGroup(ctx, acronym, session.UserName)
	if err != nil {
		return nil, err
	}
	if !joined {
		return nil, noOp("already a member of this group", map[string]any{"group": acronym})
	}
	if err := s.store.InsertHistory(ctx, store.HistoryEntry{
		DocumentKey: acronym,
		Action:      "join",
		Actor:       session.UserName,
	}); err != nil {
		return nil, err
	}
	return map[string]any{"group": acronym, "member": session.UserName, "joined": true}, nil
}

func (s *Service) LeaveGroup(ctx context.Context, session Session, acronym string) (map[string]any, error) {
	if _, err := s.store.GetGroup(ctx, acronym); err != nil {
		return nil, err
	}
	left, err := s.store.LeaveGroup(ctx, acronym, session.UserName)
	if err != nil {
		return nil, err
	}
	if !left {
		return nil, noOp("not a member of this group", map[string]any{"group": acronym})
	}
	if err := s.store.InsertHistory(ctx, store.HistoryEntry{
		DocumentKey: acronym,
		Action:      "leave",
		Actor:       session.UserName,
	}); err != nil {
		return nil, err
	}
	return map[string]any{"group": acronym, "member": session.UserName, "joined": false}, nil
}

func (s *Service) ListUsers(ctx context.Context, session Session) ([]map[string]any, error) {
	if !s.Can(session.Role, rbac.ActionAdmin) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(users))
	for _, user := range users {
		groups, err := s.store.ListGroupsForUser(ctx, user.Name)
		if err != nil {
			return nil, err
		}
		items = append(items, map[string]any{
			"name":   user.Name,
			"email":  user.Email,
			"role":   user.Role,
			"groups": groups,
		})
	}
	return items, nil
}

func (s *Service) SetUserRole(ctx context.Context, session Session, userName, role string) (map[string]any, error) {
	if !s.Can(session.Role, rbac.ActionAdmin) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	switch rbac.Role(role) {
	case rbac.RoleMember, rbac.RoleEditor, rbac.RoleAdmin:
	default:
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "role must be member, editor or admin", nil)
	}
	changed, err := s.store.SetUserRole(ctx, userName, role)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "unknown user", map[string]any{"user": userName})
	}
	return map[string]any{"name": userName, "role": role}, nil
}

func chairPayloads(chairs []store.ChairAssignment) []map[string]any {
	items := make([]map[string]any, 0, len(chairs))
	for _, chair := range chairs {
		items = append(items, map[string]any{
			"name":     chair.ChairName,
			"approved": chair.Approved,
			"addedBy":  nilIfEmpty(chair.AddedBy),
			"addedAt":  chair.AddedAt.Format(time.RFC3339),
		})
	}
	return items
}

func isAcronym(value string) bool {
	for _, ch := range value {
		if (ch < 'a' || ch > 'z') && (ch < '0' || ch > '9') {
			return false
		}
	}
	return true
}
