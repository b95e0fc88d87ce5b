package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/mapview/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to the session service.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	markerType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Marker",
		Fields: graphql.Fields{
			"position": &graphql.Field{Type: geoPointType},
			"label":    &graphql.Field{Type: graphql.String},
		},
	})

	routeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Route",
		Fields: graphql.Fields{
			"points":           &graphql.Field{Type: graphql.NewList(geoPointType)},
			"color":            &graphql.Field{Type: graphql.String},
			"weight":           &graphql.Field{Type: graphql.Int},
			"distance_meters":  &graphql.Field{Type: graphql.Float},
			"duration_seconds": &graphql.Field{Type: graphql.Float},
		},
	})

	viewportType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Viewport",
		Fields: graphql.Fields{
			"center": &graphql.Field{Type: geoPointType},
			"zoom":   &graphql.Field{Type: graphql.Int},
			"width":  &graphql.Field{Type: graphql.Int},
			"height": &graphql.Field{Type: graphql.Int},
		},
	})

	inputsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Inputs",
		Fields: graphql.Fields{
			"origin":      &graphql.Field{Type: graphql.String},
			"destination": &graphql.Field{Type: graphql.String},
		},
	})

	sessionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Session",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"state":       &graphql.Field{Type: graphql.String},
			"language":    &graphql.Field{Type: graphql.String},
			"sequence":    &graphql.Field{Type: graphql.Int},
			"inputs":      &graphql.Field{Type: inputsType},
			"viewport":    &graphql.Field{Type: viewportType},
			"anchor":      &graphql.Field{Type: markerType},
			"origin":      &graphql.Field{Type: markerType},
			"destination": &graphql.Field{Type: markerType},
			"route":       &graphql.Field{Type: routeType},
			"created_at":  &graphql.Field{Type: graphql.DateTime},
			"updated_at":  &graphql.Field{Type: graphql.DateTime},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"session": &graphql.Field{
				Type:        sessionType,
				Description: "Get a mounted map session by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					return sessionMap(deps.Sessions.Get(id))
				},
			},
			"sessions": &graphql.Field{
				Type:        graphql.NewList(sessionType),
				Description: "List mounted map sessions, oldest first",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					var result []map[string]interface{}
					for _, s := range deps.Sessions.List() {
						m, _ := sessionMap(&s, nil)
						result = append(result, m)
					}
					return result, nil
				},
			},
			"languages": &graphql.Field{
				Type:        graphql.NewList(graphql.String),
				Description: "Supported interface languages in toggle order",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return domain.Languages, nil
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"updateInputs": &graphql.Field{
				Type:        sessionType,
				Description: "Replace a session's inputs and wait for the resolution to settle",
				Args: graphql.FieldConfigArgument{
					"id":          &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"origin":      &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"destination": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					inputs := domain.Inputs{
						Origin:      p.Args["origin"].(string),
						Destination: p.Args["destination"].(string),
					}
					ctx, cancel := context.WithTimeout(p.Context, settleWait)
					defer cancel()
					return sessionMap(deps.Sessions.Update(ctx, id, inputs, true))
				},
			},
			"nextLanguage": &graphql.Field{
				Type:        graphql.String,
				Description: "Cycle a session's language",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Sessions.NextLanguage(p.Args["id"].(string))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// sessionMap converts a snapshot to the map shape graphql-go resolves
// against, keeping field names aligned with the REST JSON.
func sessionMap(s *domain.Snapshot, err error) (map[string]interface{}, error) {
	if err != nil {
		return nil, err
	}
	m := map[string]interface{}{
		"id":       s.ID,
		"state":    string(s.State),
		"language": s.Language,
		"sequence": int(s.Sequence),
		"inputs": map[string]interface{}{
			"origin":      s.Inputs.Origin,
			"destination": s.Inputs.Destination,
		},
		"created_at": s.CreatedAt.UTC(),
		"updated_at": s.UpdatedAt.UTC(),
	}
	if s.Viewport != nil {
		m["viewport"] = map[string]interface{}{
			"center": geoPoint(s.Viewport.Center),
			"zoom":   s.Viewport.Zoom,
			"width":  s.Viewport.Width,
			"height": s.Viewport.Height,
		}
	}
	if s.Anchor != nil {
		m["anchor"] = markerMap(s.Anchor)
	}
	if s.Origin != nil {
		m["origin"] = markerMap(s.Origin)
	}
	if s.Destination != nil {
		m["destination"] = markerMap(s.Destination)
	}
	if r := s.Route; r != nil {
		points := make([]map[string]interface{}, 0, len(r.Points))
		for _, p := range r.Points {
			points = append(points, geoPoint(p))
		}
		m["route"] = map[string]interface{}{
			"points":           points,
			"color":            r.Color,
			"weight":           r.Weight,
			"distance_meters":  r.DistanceMeters,
			"duration_seconds": r.DurationSeconds,
		}
	}
	return m, nil
}

func geoPoint(c domain.Coordinate) map[string]interface{} {
	return map[string]interface{}{"lat": c.Lat, "lon": c.Lon}
}

func markerMap(mv *domain.MarkerView) map[string]interface{} {
	return map[string]interface{}{
		"position": geoPoint(mv.Position),
		"label":    mv.Label,
	}
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
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
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
