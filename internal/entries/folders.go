package entries

import (
	"time"

	"github.com/confpass-app/confpass/internal/vaultfile"
	"github.com/confpass-app/confpass/internal/vaulterr"
)

// CreateFolder adds a folder; parent_id must not create a cycle (§3).
func (s *Service) CreateFolder(name, color, icon, parentID string, order int) (vaultfile.Folder, error) {
	var out vaultfile.Folder
	err := s.State.WithUnlocked(func(_ map[string]vaultfile.Entry, fm map[string]vaultfile.Folder, _ map[string]vaultfile.Tag) error {
		if parentID != "" {
			if _, ok := fm[parentID]; !ok {
				return vaulterr.NotFound("parent folder not found")
			}
		}
		f := vaultfile.Folder{
			ID:        s.newID(),
			Name:      name,
			Color:     color,
			Icon:      icon,
			ParentID:  parentID,
			CreatedAt: time.Now().Unix(),
			Order:     order,
		}
		fm[f.ID] = f
		out = f
		return nil
	})
	if err != nil {
		return vaultfile.Folder{}, err
	}
	return out, s.persist()
}

// UpdateFolder rewrites name/color/icon/order/parent in place; rejects a
// parent assignment that would make the folder its own ancestor.
func (s *Service) UpdateFolder(id, name, color, icon, parentID string, order int) (vaultfile.Folder, error) {
	var out vaultfile.Folder
	err := s.State.WithUnlocked(func(_ map[string]vaultfile.Entry, fm map[string]vaultfile.Folder, _ map[string]vaultfile.Tag) error {
		f, ok := fm[id]
		if !ok {
			return vaulterr.NotFound("folder not found")
		}
		if parentID == id {
			return vaulterr.InvalidInput("parent_id", "folder cannot be its own parent")
		}
		for cursor := parentID; cursor != ""; {
			if cursor == id {
				return vaulterr.InvalidInput("parent_id", "would create a folder cycle")
			}
			parent, ok := fm[cursor]
			if !ok {
				break
			}
			cursor = parent.ParentID
		}
		f.Name, f.Color, f.Icon, f.ParentID, f.Order = name, color, icon, parentID, order
		fm[id] = f
		out = f
		return nil
	})
	if err != nil {
		return vaultfile.Folder{}, err
	}
	return out, s.persist()
}

// DeleteFolder removes the folder and, per §4.5, cascades to entries that
// referenced it (those entries are removed, not just unlinked).
func (s *Service) DeleteFolder(id string) error {
	err := s.State.WithUnlocked(func(em map[string]vaultfile.Entry, fm map[string]vaultfile.Folder, _ map[string]vaultfile.Tag) error {
		if _, ok := fm[id]; !ok {
			return vaulterr.NotFound("folder not found")
		}
		delete(fm, id)
		for entryID, e := range em {
			if e.FolderID == id {
				delete(em, entryID)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.persist()
}

// CreateTag adds a tag.
func (s *Service) CreateTag(name, color string) (vaultfile.Tag, error) {
	var out vaultfile.Tag
	err := s.State.WithUnlocked(func(_ map[string]vaultfile.Entry, _ map[string]vaultfile.Folder, tm map[string]vaultfile.Tag) error {
		t := vaultfile.Tag{ID: s.newID(), Name: name, Color: color}
		tm[t.ID] = t
		out = t
		return nil
	})
	if err != nil {
		return vaultfile.Tag{}, err
	}
	return out, s.persist()
}

// UpdateTag rewrites name/color.
func (s *Service) UpdateTag(id, name, color string) (vaultfile.Tag, error) {
	var out vaultfile.Tag
	err := s.State.WithUnlocked(func(_ map[string]vaultfile.Entry, _ map[string]vaultfile.Folder, tm map[string]vaultfile.Tag) error {
		t, ok := tm[id]
		if !ok {
			return vaulterr.NotFound("tag not found")
		}
		t.Name, t.Color = name, color
		tm[id] = t
		out = t
		return nil
	})
	if err != nil {
		return vaultfile.Tag{}, err
	}
	return out, s.persist()
}

// DeleteTag removes the tag and unlinks it from every entry that referenced
// it (§4.5).
func (s *Service) DeleteTag(id string) error {
	err := s.State.WithUnlocked(func(em map[string]vaultfile.Entry, _ map[string]vaultfile.Folder, tm map[string]vaultfile.Tag) error {
		if _, ok := tm[id]; !ok {
			return vaulterr.NotFound("tag not found")
		}
		delete(tm, id)
		for entryID, e := range em {
			if !containsString(e.TagIDs, id) {
				continue
			}
			e.TagIDs = removeString(e.TagIDs, id)
			em[entryID] = e
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.persist()
}

func containsString(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}

func removeString(ss []string, v string) []string {
	out := ss[:0]
	for _, s := range ss {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
