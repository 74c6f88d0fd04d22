package sm40

import "github.com/tidwall/gjson"

// responseShape is one known layout of an SM40 response: the gjson path at
// which the wanted value sits. SM40 deployments disagree on whether payloads
// are wrapped in a "data" envelope, so each lookup tries its shapes in order
// and the first hit wins. Supporting a new layout means adding one entry.
type responseShape struct {
	Name string
	Path string
}

type shapes []responseShape

var tokenShapes = shapes{
	{Name: "flat", Path: "access_token"},
	{Name: "nested", Path: "data.access_token"},
}

var profileShapes = shapes{
	{Name: "flat", Path: "user_data"},
	{Name: "nested", Path: "data.user_data"},
}

// lookup returns the first value accepted by accept along with the name of
// the shape it was found under.
func (s shapes) lookup(body []byte, accept func(gjson.Result) bool) (gjson.Result, string, bool) {
	for _, shape := range s {
		v := gjson.GetBytes(body, shape.Path)
		if accept(v) {
			return v, shape.Name, true
		}
	}
	return gjson.Result{}, "", false
}

func isToken(v gjson.Result) bool {
	return (v.Type == gjson.String || v.Type == gjson.Number) && v.String() != ""
}

func isObject(v gjson.Result) bool {
	return v.IsObject()
}
