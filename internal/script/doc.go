// Package script runs record validation written in Lua.
//
// A validator source defines a global function validate(attrs). It is
// called with the prospective attribute table and returns:
//
//   - nil, false or true when the attributes are valid
//   - a string message when they are not
//   - a table of per-attribute messages when they are not
//
// Scripts run in a sandboxed gopher-lua state with only the base, table,
// string and math libraries. File, OS and debug access and every
// chunk-loading function are unavailable, and each call is bounded by a
// timeout.
//
// Example:
//
//	v, err := script.NewValidator("note", `
//	    function validate(attrs)
//	        if attrs.title == nil or attrs.title == "" then
//	            return "title is required"
//	        end
//	    end`)
//	kind := &model.Kind{Name: "note", Validate: v.Func()}
package script
