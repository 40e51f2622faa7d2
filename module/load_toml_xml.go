/*
Copyright © 2025 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package module

import (
	"bytes"
	"encoding/xml"
	"strings"

	"github.com/BurntSushi/toml"
)

func tomlUnmarshal(raw []byte, v *map[string]any) error {
	_, err := toml.Decode(string(raw), v)
	return err
}

// xmlNode is an intermediate form so attributes and children round-trip
// into a JSON-friendly map with the common "@attr" / "#text" convention.
type xmlNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Content  []byte     `xml:",innerxml"`
}

func xmlToMap(raw []byte) (any, error) {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	var root xmlNode
	if err := dec.Decode(&root); err != nil {
		return nil, err
	}
	return nodeToMap(root), nil
}

func nodeToMap(n xmlNode) map[string]any {
	out := make(map[string]any)
	for _, a := range n.Attrs {
		out["@"+a.Name.Local] = a.Value
	}

	children, text := parseInnerXML(n.Content)
	if len(children) > 0 {
		for _, c := range children {
			key := c.XMLName.Local
			childVal := nodeToMap(c)
			if existing, ok := out[key]; ok {
				switch e := existing.(type) {
				case []any:
					out[key] = append(e, childVal)
				default:
					out[key] = []any{e, childVal}
				}
			} else {
				out[key] = childVal
			}
		}
	} else if strings.TrimSpace(text) != "" {
		out["#text"] = strings.TrimSpace(text)
	}
	return out
}

func parseInnerXML(content []byte) ([]xmlNode, string) {
	dec := xml.NewDecoder(bytes.NewReader(content))
	var children []xmlNode
	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var child xmlNode
			if dec.DecodeElement(&child, &t) == nil {
				child.XMLName = t.Name
				children = append(children, child)
			}
		case xml.CharData:
			text.Write(t)
		}
	}
	return children, text.String()
}
