package utils

import (
	"reflect"
	"strconv"
	"strings"
)

// UpdatesFromPtrDTO turns the non-nil pointer fields of a PATCH request into
// column updates. The column is the json name unless a `patch:"column"` tag
// names another one. Fields tagged `patch:"-"` need conversion first and are
// left for the caller to add.
func UpdatesFromPtrDTO(dto any) map[string]any {
	updates := make(map[string]any)
	v := reflect.ValueOf(dto)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return updates
	}
	s := v.Elem()
	t := s.Type()
	for i := 0; i < t.NumField(); i++ {
		field := s.Field(i)
		if field.Kind() != reflect.Ptr || field.IsNil() {
			continue
		}
		if column := patchColumn(t.Field(i)); column != "" {
			updates[column] = field.Elem().Interface()
		}
	}
	return updates
}

func patchColumn(sf reflect.StructField) string {
	switch tag := sf.Tag.Get("patch"); tag {
	case "-":
		return ""
	case "":
	default:
		return tag
	}
	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

// ParseIntDefault parses a non-negative query value, falling back to def.
func ParseIntDefault(s string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && v >= 0 {
		return v
	}
	return def
}
