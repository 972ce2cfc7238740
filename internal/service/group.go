package service

import (
	"context"
	"sort"
	"strings"

	"dirbridge/internal/db/repository"
	"dirbridge/internal/domain"
)

type GroupService struct {
	groups *repository.GroupRepo
}

func NewGroupService(groups *repository.GroupRepo) *GroupService {
	return &GroupService{groups: groups}
}

func (s *GroupService) Create(ctx context.Context, in domain.CreateGroupInput) (*domain.Group, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, domain.ErrValidation("group name is required")
	}
	return s.groups.Create(ctx, &domain.Group{
		Name:        in.Name,
		Description: in.Description,
		ParentID:    in.ParentID,
	})
}

func (s *GroupService) Get(ctx context.Context, id string) (*domain.Group, error) {
	return s.groups.GetByID(ctx, id)
}

func (s *GroupService) List(ctx context.Context) ([]*domain.Group, error) {
	return s.groups.List(ctx)
}

func (s *GroupService) Update(ctx context.Context, id string, in domain.UpdateGroupInput) (*domain.Group, error) {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, domain.ErrValidation("group name is required")
	}
	if in.Name != nil || in.Description != nil {
		if _, err := s.groups.Update(ctx, id, in); err != nil {
			return nil, err
		}
	}
	if in.SetParent {
		if err := s.groups.SetParent(ctx, id, in.ParentID); err != nil {
			return nil, err
		}
	}
	return s.groups.GetByID(ctx, id)
}

func (s *GroupService) Delete(ctx context.Context, id string) error {
	return s.groups.Delete(ctx, id)
}

func (s *GroupService) AddMembers(ctx context.Context, groupID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return domain.ErrValidation("user_ids is required")
	}
	return s.groups.AddMembers(ctx, groupID, userIDs)
}

func (s *GroupService) RemoveMember(ctx context.Context, groupID, userID string) error {
	return s.groups.RemoveMember(ctx, groupID, userID)
}

func (s *GroupService) Members(ctx context.Context, groupID string) ([]*domain.User, error) {
	if _, err := s.groups.GetByID(ctx, groupID); err != nil {
		return nil, err
	}
	return s.groups.ListMembers(ctx, groupID)
}

// Ancestors returns the chain from the group's parent up to the root,
// nearest first.
func (s *GroupService) Ancestors(ctx context.Context, id string) ([]*domain.Group, error) {
	if _, err := s.groups.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.groups.Ancestors(ctx, id)
}

func (s *GroupService) Descendants(ctx context.Context, id string) ([]*domain.Group, error) {
	if _, err := s.groups.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.groups.Descendants(ctx, id)
}

// Tree assembles the full forest of groups. Roots and siblings keep their
// creation order unless sortByName is set.
func (s *GroupService) Tree(ctx context.Context, sortByName bool) ([]*domain.GroupNode, error) {
	all, err := s.groups.List(ctx)
	if err != nil {
		return nil, err
	}

	nodes := make(map[string]*domain.GroupNode, len(all))
	for _, g := range all {
		nodes[g.ID] = &domain.GroupNode{Group: *g, Children: []*domain.GroupNode{}}
	}

	roots := []*domain.GroupNode{}
	for _, g := range all {
		n := nodes[g.ID]
		if g.ParentID == nil {
			roots = append(roots, n)
			continue
		}
		parent, ok := nodes[*g.ParentID]
		if !ok {
			// Orphaned parent reference; surface the group as a root
			// rather than dropping it.
			roots = append(roots, n)
			continue
		}
		parent.Children = append(parent.Children, n)
	}

	if sortByName {
		sortForest(roots)
	}
	return roots, nil
}

func sortForest(nodes []*domain.GroupNode) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
	for _, n := range nodes {
		sortForest(n.Children)
	}
}
