// SalonSync - YCLIENTS Booking Platform Data Synchronization
// Copyright 2026 A. Volkov
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/salonsync

package syncer

import "strconv"

// buildSimplifiedDoc flattens a synced salon document into the lookup view
// stored in the prompts collection: salon contact details plus
// name-to-id maps for staff, services and categories. Sections whose source
// data is missing from the salon document are simply absent;
// service_name_to_id is always present, empty when there are no services.
func buildSimplifiedDoc(salonID int64, salonDoc map[string]any) map[string]any {
	simplified := map[string]any{
		"id": strconv.FormatInt(salonID, 10),
	}

	if info := nestedMap(salonDoc, "salon_info", "data"); info != nil {
		simplified["salon_info"] = map[string]any{
			stringField(info, "title"): map[string]any{
				"id":      info["id"],
				"phone":   stringField(info, "phone"),
				"address": stringField(info, "address"),
			},
		}
	}

	if staff := nestedList(salonDoc, "staff", "data"); staff != nil {
		entries := make([]any, 0, len(staff))
		for _, raw := range staff {
			member, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			entries = append(entries, map[string]any{
				stringField(member, "name"): map[string]any{"id": member["id"]},
			})
		}
		simplified["staff_name_to_id"] = entries
	}

	serviceNameToID := map[string]any{}
	if services := nestedList(salonDoc, "services", "company_services", "data"); services != nil {
		for _, raw := range services {
			service, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			name := stringField(service, "title")
			if name == "" {
				continue
			}
			entry := map[string]any{
				"id":          service["id"],
				"price":       service["price_min"],
				"category_id": service["category_id"],
			}
			existing, _ := serviceNameToID[name].([]any)
			serviceNameToID[name] = append(existing, entry)
		}
	}
	simplified["service_name_to_id"] = serviceNameToID

	if categories := nestedList(salonDoc, "categories", "data"); categories != nil {
		entries := make([]any, 0, len(categories))
		for _, raw := range categories {
			category, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			entries = append(entries, map[string]any{
				stringField(category, "title"): map[string]any{"category_id": category["id"]},
			})
		}
		simplified["category_name_to_id"] = entries
	}

	return simplified
}

// nestedMap walks a path of map keys, returning the map at the end or nil.
func nestedMap(doc map[string]any, path ...string) map[string]any {
	current := doc
	for _, key := range path {
		next, ok := current[key].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return current
}

// nestedList walks map keys to a list value, the final key naming a list.
func nestedList(doc map[string]any, path ...string) []any {
	if len(path) == 0 {
		return nil
	}
	parent := doc
	if len(path) > 1 {
		parent = nestedMap(doc, path[:len(path)-1]...)
		if parent == nil {
			return nil
		}
	}
	list, _ := parent[path[len(path)-1]].([]any)
	return list
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
