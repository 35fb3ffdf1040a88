package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/graphql-go/graphql"

	"github.com/CreativeUnicorns/shellprefs"
)

type graphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

// handleGraphQL executes a single GraphQL operation. Resolver failures are reported in the
// response's errors list with HTTP 200; only an unreadable request is rejected with 400.
func (s *Server) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req graphQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, r, http.StatusBadRequest, "Invalid GraphQL request", err)
		return
	}
	if req.Query == "" {
		s.respondWithError(w, r, http.StatusBadRequest, "Invalid GraphQL request", errors.New("query is required"))
		return
	}

	result := graphql.Do(graphql.Params{
		Schema:         s.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        r.Context(),
	})
	if result.HasErrors() {
		s.logger.Warn("GraphQL operation returned errors",
			"operation", req.OperationName,
			"errors", len(result.Errors),
			"first_error", result.Errors[0].Message,
		)
	}
	s.respondWithJSON(w, r, http.StatusOK, result)
}

func (s *Server) newSchema() (graphql.Schema, error) {
	preferenceEnum := graphql.NewEnum(graphql.EnumConfig{
		Name:        "FrontendPreference",
		Description: "Shell a user asked for.",
		Values: graphql.EnumValueConfigMap{
			string(shellprefs.PreferenceTwenty): &graphql.EnumValueConfig{Value: shellprefs.PreferenceTwenty},
			string(shellprefs.PreferenceSFDS2):  &graphql.EnumValueConfig{Value: shellprefs.PreferenceSFDS2},
		},
	})

	policyEnum := graphql.NewEnum(graphql.EnumConfig{
		Name:        "FrontendPolicy",
		Description: "Workspace rule deciding whether members pick their own shell.",
		Values: graphql.EnumValueConfigMap{
			string(shellprefs.PolicyAllowUserChoice): &graphql.EnumValueConfig{Value: shellprefs.PolicyAllowUserChoice},
			string(shellprefs.PolicyForceTwenty):     &graphql.EnumValueConfig{Value: shellprefs.PolicyForceTwenty},
			string(shellprefs.PolicyForceSFDS2):      &graphql.EnumValueConfig{Value: shellprefs.PolicyForceSFDS2},
		},
	})

	shellEnum := graphql.NewEnum(graphql.EnumConfig{
		Name: "FrontendShell",
		Values: graphql.EnumValueConfigMap{
			string(shellprefs.ShellTwenty): &graphql.EnumValueConfig{Value: shellprefs.ShellTwenty},
			string(shellprefs.ShellSFDS2):  &graphql.EnumValueConfig{Value: shellprefs.ShellSFDS2},
		},
	})

	userType := graphql.NewObject(graphql.ObjectConfig{
		Name: "User",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(*shellprefs.User).ID, nil
				},
			},
			"frontendPreference": &graphql.Field{
				Type: graphql.NewNonNull(preferenceEnum),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return shellprefs.NormalizePreference(p.Source.(*shellprefs.User).FrontendPreference), nil
				},
			},
		},
	})

	workspaceType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Workspace",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(*shellprefs.Workspace).ID, nil
				},
			},
			"frontendPolicy": &graphql.Field{
				Type: policyEnum,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					policy := p.Source.(*shellprefs.Workspace).FrontendPolicy
					if policy == "" {
						return nil, nil
					}
					return policy, nil
				},
			},
		},
	})

	resolutionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "FrontendShellResolution",
		Fields: graphql.Fields{
			"effectiveShell": &graphql.Field{
				Type: graphql.NewNonNull(shellEnum),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(shellprefs.Resolution).EffectiveShell, nil
				},
			},
			"isForced": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Boolean),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(shellprefs.Resolution).IsForced, nil
				},
			},
			"userPreference": &graphql.Field{
				Type: graphql.NewNonNull(preferenceEnum),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(shellprefs.Resolution).UserPreference, nil
				},
			},
			"rawPolicy": &graphql.Field{
				Type: policyEnum,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					raw := p.Source.(shellprefs.Resolution).RawPolicy
					if raw == nil {
						return nil, nil
					}
					return *raw, nil
				},
			},
			"redirect": &graphql.Field{
				Type:        graphql.String,
				Description: "Location to navigate to from path, or null when the page can stay.",
				Args: graphql.FieldConfigArgument{
					"path": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					res := p.Source.(shellprefs.Resolution)
					d := shellprefs.DecideRedirect(res.EffectiveShell, p.Args["path"].(string))
					if !d.Redirect {
						return nil, nil
					}
					return d.Location, nil
				},
			},
		},
	})

	updateWorkspaceInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "UpdateWorkspaceInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"frontendPolicy": &graphql.InputObjectFieldConfig{Type: policyEnum},
		},
	})

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"currentUser": &graphql.Field{
				Type: userType,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					userID := UserIDFromContext(p.Context)
					if userID == "" {
						return nil, errMissingIdentity
					}
					return s.manager.GetUser(p.Context, userID)
				},
			},
			"currentWorkspace": &graphql.Field{
				Type: workspaceType,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					workspaceID := WorkspaceIDFromContext(p.Context)
					if workspaceID == "" {
						return nil, nil
					}
					return s.manager.GetWorkspace(p.Context, workspaceID)
				},
			},
			"frontendShell": &graphql.Field{
				Type: graphql.NewNonNull(resolutionType),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					userID := UserIDFromContext(p.Context)
					if userID == "" {
						return nil, errMissingIdentity
					}
					return s.manager.ResolveFor(p.Context, userID, WorkspaceIDFromContext(p.Context))
				},
			},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"updateUserFrontendPreference": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Boolean),
				Args: graphql.FieldConfigArgument{
					"frontendPreference": &graphql.ArgumentConfig{Type: graphql.NewNonNull(preferenceEnum)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					userID := UserIDFromContext(p.Context)
					if userID == "" {
						return nil, errMissingIdentity
					}
					pref, ok := p.Args["frontendPreference"].(shellprefs.FrontendPreference)
					if !ok {
						return nil, fmt.Errorf("%w: frontendPreference", shellprefs.ErrInvalidValue)
					}
					if err := s.manager.SetUserPreference(p.Context, userID, pref); err != nil {
						return nil, err
					}
					return true, nil
				},
			},
			"updateWorkspace": &graphql.Field{
				Type: workspaceType,
				Args: graphql.FieldConfigArgument{
					"data": &graphql.ArgumentConfig{Type: graphql.NewNonNull(updateWorkspaceInput)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					workspaceID := WorkspaceIDFromContext(p.Context)
					if workspaceID == "" {
						return nil, errMissingIdentity
					}
					data, _ := p.Args["data"].(map[string]any)
					raw, present := data["frontendPolicy"]
					if !present || raw == nil {
						return s.manager.GetWorkspace(p.Context, workspaceID)
					}
					policy, ok := raw.(shellprefs.FrontendPolicy)
					if !ok {
						return nil, fmt.Errorf("%w: frontendPolicy", shellprefs.ErrInvalidValue)
					}
					return s.manager.SetWorkspacePolicy(p.Context, workspaceID, policy)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    query,
		Mutation: mutation,
	})
}
