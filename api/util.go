package api

import (
	"reflect"

	"github.com/rs/zerolog/log"
)

// Scrub masks every field tagged sensitive. A sensitive struct has all of its fields masked.
func Scrub(o interface{}) {
	v := reflect.ValueOf(o).Elem()
	if v.Kind() != reflect.Struct {
		return
	}
	scrub(v, false)
}

func scrub(v reflect.Value, all bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := v.Field(i)
		sf := t.Field(i)
		if !f.CanSet() {
			continue
		}
		sensitive := all || sf.Tag.Get("sensitive") != ""
		if f.Kind() == reflect.Struct {
			scrub(f, sensitive)
			continue
		}
		if !sensitive {
			continue
		}
		switch f.Kind() {
		case reflect.String:
			f.SetString("******")
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			f.SetInt(0)
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			f.SetUint(0)
		case reflect.Float32, reflect.Float64:
			f.SetFloat(0.00)
		case reflect.Bool:
			f.SetBool(false)
		case reflect.Slice, reflect.Map, reflect.Ptr, reflect.Interface:
			f.Set(reflect.Zero(f.Type()))
		default:
			log.Warn().
				Str("fieldName", sf.Name).
				Str("type", f.Kind().String()).
				Msg("field marked sensitive but was an unrecognized type")
		}
	}
}
