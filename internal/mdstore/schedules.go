package mdstore

import (
	"sort"

	"github.com/prizm-dev/prizm/internal/types"
)

// ReadAllScheduleItems returns every schedule item in the scope, sorted by
// startTime ascending (scheduleItem has no createdAt field of its own).
func (s *Store) ReadAllScheduleItems() ([]*types.ScheduleItem, error) {
	files, err := s.scanUserEntities(string(types.TypeScheduleItem))
	if err != nil {
		return nil, err
	}

	items := make([]*types.ScheduleItem, 0, len(files))
	for _, f := range files {
		items = append(items, scheduleFromParsed(f))
	}
	sortScheduleItemsByStart(items)
	return items, nil
}

// ReadScheduleItemByID returns the schedule item with the given id, or nil.
func (s *Store) ReadScheduleItemByID(id string) (*types.ScheduleItem, error) {
	items, err := s.ReadAllScheduleItems()
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if it.ID == id {
			return it, nil
		}
	}
	return nil, nil
}

// WriteScheduleItem persists item. Schedules are title-driven user
// entities, like documents and todo lists.
func (s *Store) WriteScheduleItem(item *types.ScheduleItem, relativePath string) (string, error) {
	data := map[string]any{
		"prizm_type": string(types.TypeScheduleItem),
		"id":         item.ID,
		"title":      item.Title,
		"type":       string(item.Type),
		"startTime":  item.StartTime,
		"status":     string(item.Status),
	}
	if item.Description != "" {
		data["description"] = item.Description
	}
	if item.EndTime != 0 {
		data["endTime"] = item.EndTime
	}
	if item.AllDay {
		data["allDay"] = item.AllDay
	}
	if item.Recurrence != "" {
		data["recurrence"] = item.Recurrence
	}
	if len(item.Reminders) > 0 {
		data["reminders"] = item.Reminders
	}
	if len(item.Tags) > 0 {
		data["tags"] = item.Tags
	}
	if len(item.LinkedItems) > 0 {
		linked := make([]map[string]any, 0, len(item.LinkedItems))
		for _, li := range item.LinkedItems {
			linked = append(linked, map[string]any{"kind": li.Kind, "id": li.ID})
		}
		data["linkedItems"] = linked
	}

	dir := dirOf(relativePath)
	return s.writeTitledEntity(relativePath, dir, item.Title, data, "")
}

// DeleteScheduleItem removes the schedule item with the given id.
// Idempotent.
func (s *Store) DeleteScheduleItem(id string) error {
	items, err := s.scanUserEntities(string(types.TypeScheduleItem))
	if err != nil {
		return err
	}
	for _, f := range items {
		if stringField(f.Data, "id") == id {
			return s.deleteByPath(f.RelativePath, false)
		}
	}
	return nil
}

func scheduleFromParsed(f parsedFile) *types.ScheduleItem {
	item := &types.ScheduleItem{
		ID:           stringField(f.Data, "id"),
		Title:        stringField(f.Data, "title"),
		Description:  stringField(f.Data, "description"),
		Type:         types.ScheduleItemType(stringField(f.Data, "type")),
		StartTime:    int64Field(f.Data, "startTime"),
		EndTime:      int64Field(f.Data, "endTime"),
		Recurrence:   stringField(f.Data, "recurrence"),
		Status:       types.ScheduleStatus(stringField(f.Data, "status")),
		RelativePath: f.RelativePath,
	}
	if allDay, ok := f.Data["allDay"].(bool); ok {
		item.AllDay = allDay
	}
	if tags, ok := f.Data["tags"].([]any); ok {
		for _, t := range tags {
			if str, ok := t.(string); ok {
				item.Tags = append(item.Tags, str)
			}
		}
	}
	if reminders, ok := f.Data["reminders"].([]any); ok {
		for _, r := range reminders {
			item.Reminders = append(item.Reminders, anyToInt64(r))
		}
	}
	if linked, ok := f.Data["linkedItems"].([]any); ok {
		for _, li := range linked {
			m, ok := li.(map[string]any)
			if !ok {
				continue
			}
			item.LinkedItems = append(item.LinkedItems, types.LinkedItem{
				Kind: stringField(m, "kind"),
				ID:   stringField(m, "id"),
			})
		}
	}
	return item
}

func sortScheduleItemsByStart(items []*types.ScheduleItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].StartTime < items[j].StartTime
	})
}
