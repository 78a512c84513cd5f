package http

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/epiviz/internal/core/domain"
	"github.com/samirrijal/epiviz/internal/core/usecases"
)

// asGraph converts a result to the JSON shape the schema fields are named
// after. Colours become rgb() strings on the way.
func asGraph(v interface{}, err error) (interface{}, error) {
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func optionalFloat(args map[string]interface{}, key string) float64 {
	if v, ok := args[key].(float64); ok {
		return v
	}
	return 0
}

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	geoBoxType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoBox",
		Fields: graphql.Fields{
			"min_lat": &graphql.Field{Type: graphql.Float},
			"max_lat": &graphql.Field{Type: graphql.Float},
			"min_lon": &graphql.Field{Type: graphql.Float},
			"max_lon": &graphql.Field{Type: graphql.Float},
		},
	})

	geoBoxInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "GeoBoxInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"min_lat": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
			"max_lat": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
			"min_lon": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
			"max_lon": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
		},
	})

	breakpointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Breakpoint",
		Fields: graphql.Fields{
			"value":  &graphql.Field{Type: graphql.Float},
			"colour": &graphql.Field{Type: graphql.String},
		},
	})

	gradientType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Gradient",
		Fields: graphql.Fields{
			"name":  &graphql.Field{Type: graphql.String},
			"slug":  &graphql.Field{Type: graphql.String},
			"min":   &graphql.Field{Type: graphql.Float},
			"max":   &graphql.Field{Type: graphql.Float},
			"stops": &graphql.Field{Type: graphql.NewList(breakpointType)},
		},
	})

	resolvedType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ResolvedColour",
		Fields: graphql.Fields{
			"gradient": &graphql.Field{Type: graphql.String},
			"value":    &graphql.Field{Type: graphql.Float},
			"scale":    &graphql.Field{Type: graphql.Float},
			"colour":   &graphql.Field{Type: graphql.String},
			"hex":      &graphql.Field{Type: graphql.String},
		},
	})

	mapType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Map",
		Fields: graphql.Fields{
			"name":        &graphql.Field{Type: graphql.String},
			"image_ref":   &graphql.Field{Type: graphql.String},
			"image_ratio": &graphql.Field{Type: graphql.Float},
			"bounds":      &graphql.Field{Type: geoBoxType},
			"zoomable":    &graphql.Field{Type: graphql.Boolean},
		},
	})

	cropFields := graphql.Fields{
		"width":      &graphql.Field{Type: graphql.Float},
		"height":     &graphql.Field{Type: graphql.Float},
		"box":        &graphql.Field{Type: geoBoxType},
		"left":       &graphql.Field{Type: graphql.Float},
		"top":        &graphql.Field{Type: graphql.Float},
		"px_per_lat": &graphql.Field{Type: graphql.Float},
		"px_per_lon": &graphql.Field{Type: graphql.Float},
		"contained":  &graphql.Field{Type: graphql.Boolean},
	}
	frameCropType := graphql.NewObject(graphql.ObjectConfig{Name: "FrameCrop", Fields: cropFields})

	viewFields := graphql.Fields{
		"map":       &graphql.Field{Type: graphql.String},
		"margin":    &graphql.Field{Type: graphql.Float},
		"width_km":  &graphql.Field{Type: graphql.Float},
		"height_km": &graphql.Field{Type: graphql.Float},
	}
	for k, v := range cropFields {
		viewFields[k] = &graphql.Field{Type: v.Type}
	}
	cropType := graphql.NewObject(graphql.ObjectConfig{Name: "Crop", Fields: viewFields})

	runType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Run",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"name":        &graphql.Field{Type: graphql.String},
			"description": &graphql.Field{Type: graphql.String},
			"days":        &graphql.Field{Type: graphql.Int},
			"towns":       &graphql.Field{Type: graphql.Int},
			"created_at":  &graphql.Field{Type: graphql.String},
		},
	})

	townColourType := graphql.NewObject(graphql.ObjectConfig{
		Name: "TownColour",
		Fields: graphql.Fields{
			"town_id":  &graphql.Field{Type: graphql.Int},
			"name":     &graphql.Field{Type: graphql.String},
			"infected": &graphql.Field{Type: graphql.Int},
			"size":     &graphql.Field{Type: graphql.Int},
			"fraction": &graphql.Field{Type: graphql.Float},
			"colour":   &graphql.Field{Type: graphql.String},
			"hex":      &graphql.Field{Type: graphql.String},
			"location": &graphql.Field{Type: geoPointType},
			"x":        &graphql.Field{Type: graphql.Float},
			"y":        &graphql.Field{Type: graphql.Float},
			"visible":  &graphql.Field{Type: graphql.Boolean},
		},
	})

	frameType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Frame",
		Fields: graphql.Fields{
			"run_id":         &graphql.Field{Type: graphql.String},
			"day":            &graphql.Field{Type: graphql.Int},
			"gradient":       &graphql.Field{Type: graphql.String},
			"scale":          &graphql.Field{Type: graphql.Float},
			"map":            &graphql.Field{Type: graphql.String},
			"crop":           &graphql.Field{Type: frameCropType},
			"towns":          &graphql.Field{Type: graphql.NewList(townColourType)},
			"total_infected": &graphql.Field{Type: graphql.Int},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"gradients": &graphql.Field{
				Type:        graphql.NewList(gradientType),
				Description: "List all gradients in registration order",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return asGraph(deps.Gradients.List(), nil)
				},
			},
			"gradient": &graphql.Field{
				Type:        gradientType,
				Description: "Get a gradient by name or slug",
				Args: graphql.FieldConfigArgument{
					"name": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return asGraph(deps.Gradients.Get(p.Args["name"].(string)))
				},
			},
			"resolveColour": &graphql.Field{
				Type:        resolvedType,
				Description: "Colour of a value on a gradient, optionally scaled",
				Args: graphql.FieldConfigArgument{
					"gradient": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"value":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"scale":    &graphql.ArgumentConfig{Type: graphql.Float},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return asGraph(deps.Gradients.Resolve(
						p.Args["gradient"].(string), p.Args["value"].(float64), optionalFloat(p.Args, "scale"),
					))
				},
			},
			"maps": &graphql.Field{
				Type:        graphql.NewList(mapType),
				Description: "List all maps",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return asGraph(deps.Maps.List(), nil)
				},
			},
			"crop": &graphql.Field{
				Type:        cropType,
				Description: "Viewport onto a map showing a focus box",
				Args: graphql.FieldConfigArgument{
					"map":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"width":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"height": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"focus":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(geoBoxInput)},
					"margin": &graphql.ArgumentConfig{Type: graphql.Float},
					"strict": &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					q := usecases.CropQuery{
						Width:  p.Args["width"].(float64),
						Height: p.Args["height"].(float64),
						Focus:  boxArg(p.Args["focus"]),
						Margin: optionalFloat(p.Args, "margin"),
						Strict: p.Args["strict"].(bool),
					}
					return asGraph(deps.Maps.Crop(p.Context, p.Args["map"].(string), q))
				},
			},
			"runs": &graphql.Field{
				Type:        graphql.NewList(runType),
				Description: "List stored simulation runs, newest first",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return asGraph(deps.Heatmaps.Runs(p.Context))
				},
			},
			"frame": &graphql.Field{
				Type:        frameType,
				Description: "Town colours of one day of a run",
				Args: graphql.FieldConfigArgument{
					"run":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"day":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
					"gradient": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"scale":    &graphql.ArgumentConfig{Type: graphql.Float},
					"map":      &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"width":    &graphql.ArgumentConfig{Type: graphql.Float},
					"height":   &graphql.ArgumentConfig{Type: graphql.Float},
					"margin":   &graphql.ArgumentConfig{Type: graphql.Float},
					"focus":    &graphql.ArgumentConfig{Type: geoBoxInput},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					q := usecases.FrameQuery{
						RunID:    p.Args["run"].(string),
						Day:      p.Args["day"].(int),
						Gradient: p.Args["gradient"].(string),
						Scale:    optionalFloat(p.Args, "scale"),
						Map:      p.Args["map"].(string),
						Width:    optionalFloat(p.Args, "width"),
						Height:   optionalFloat(p.Args, "height"),
						Margin:   optionalFloat(p.Args, "margin"),
					}
					if f, ok := p.Args["focus"]; ok && f != nil {
						box := boxArg(f)
						q.Focus = &box
					}
					return asGraph(deps.Heatmaps.Frame(p.Context, q))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

func boxArg(v interface{}) domain.GeoBox {
	m, _ := v.(map[string]interface{})
	get := func(k string) float64 {
		f, _ := m[k].(float64)
		return f
	}
	return domain.GeoBox{MinLat: get("min_lat"), MaxLat: get("max_lat"), MinLon: get("min_lon"), MaxLon: get("max_lon")}
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
