package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"

	"github.com/wesleyorama2/applyload/internal/application"
	lhttp "github.com/wesleyorama2/applyload/internal/http"
)

// Service paths, relative to the client's base URL.
const (
	pathSession       = "session"
	pathEvents        = "session/events"
	pathApplication   = "session/application"
	pathOfferRequests = "session/offerRequests"
	pathVerify        = "session/verify"
)

// CreateSessionRequest opens a form session.
type CreateSessionRequest struct {
	Product    string `json:"product"`
	Brand      string `json:"brand"`
	ArrivalURL string `json:"arrivalUrl"`
}

// Handle identifies an authenticated form session.
type Handle struct {
	ID    int64
	Token string
}

// UserSession is the service's view of a session and its merged application.
type UserSession struct {
	ID          int64
	Application json.RawMessage
}

// Event is a UI tracking event.
type Event struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

type offerRequestBody struct {
	Type        string          `json:"type"`
	Application json.RawMessage `json:"application"`
}

// API is a typed client for the form service. One API belongs to one
// session: CreateSession stores the bearer token on the underlying client.
type API struct {
	client   *lhttp.Client
	validate bool
}

// NewAPI wraps client. With validate set, response bodies are checked
// against the service's JSON schemas before they are decoded.
func NewAPI(client *lhttp.Client, validate bool) *API {
	return &API{client: client, validate: validate}
}

// CreateSession opens a session and attaches its token to every later request.
func (a *API) CreateSession(ctx context.Context, req CreateSessionRequest) (*Handle, error) {
	resp, err := a.send(ctx, lhttp.Post(pathSession).WithBody(req), createdSessionValidator)
	if err != nil {
		return nil, err
	}

	body := resp.GetBody()
	token := gjson.GetBytes(body, "token")
	if token.Type != gjson.String || token.Str == "" {
		return nil, &ProtocolError{Path: pathSession, Problems: []string{"missing token"}}
	}

	a.client.SetBearerToken(token.Str)
	return &Handle{ID: gjson.GetBytes(body, "id").Int(), Token: token.Str}, nil
}

// GetSession fetches the session and its merged application.
func (a *API) GetSession(ctx context.Context) (*UserSession, error) {
	resp, err := a.send(ctx, lhttp.Get(pathSession), userSessionValidator)
	if err != nil {
		return nil, err
	}

	body := resp.GetBody()
	app := gjson.GetBytes(body, "application")
	if !app.IsObject() {
		return nil, &ProtocolError{Path: pathSession, Problems: []string{"missing application"}}
	}
	return &UserSession{
		ID:          gjson.GetBytes(body, "id").Int(),
		Application: json.RawMessage(app.Raw),
	}, nil
}

// EmitEvent records a tracking event.
func (a *API) EmitEvent(ctx context.Context, event Event) error {
	_, err := a.send(ctx, lhttp.Post(pathEvents).WithBody(event), nil)
	return err
}

// StoreApplication merges fragment into the session's application.
func (a *API) StoreApplication(ctx context.Context, fragment application.Application) error {
	_, err := a.send(ctx, lhttp.Post(pathApplication).WithBody(fragment), nil)
	return err
}

// RequestOffer submits app for evaluation; the decision starts PROCESSING.
func (a *API) RequestOffer(ctx context.Context, offerType string, app json.RawMessage) (*OfferDecision, error) {
	req := lhttp.Post(pathOfferRequests).WithBody(offerRequestBody{Type: offerType, Application: app})
	resp, err := a.send(ctx, req, offerRequestValidator)
	if err != nil {
		return nil, err
	}
	return decodeDecision(pathOfferRequests, resp.GetBody())
}

// Verify triggers the credit check. The response body is ignored.
func (a *API) Verify(ctx context.Context) error {
	_, err := a.send(ctx, lhttp.Post(pathVerify), nil)
	return err
}

// GetOfferRequest fetches the current state of an offer decision.
func (a *API) GetOfferRequest(ctx context.Context, id int64) (*OfferDecision, error) {
	path := pathOfferRequests + "/" + strconv.FormatInt(id, 10)
	resp, err := a.send(ctx, lhttp.Get(path), offerRequestValidator)
	if err != nil {
		return nil, err
	}
	return decodeDecision(path, resp.GetBody())
}

// send executes req, turns non-2xx into *StatusError and, when enabled,
// validates the body against schema.
func (a *API) send(ctx context.Context, req *lhttp.Request, schema *jsonschema.Schema) (*lhttp.Response, error) {
	resp, err := a.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	if !resp.IsSuccess() {
		return nil, &StatusError{
			Method:     req.Method,
			Path:       req.Path,
			StatusCode: resp.StatusCode,
			Body:       truncate(resp.GetBodyAsString(), 200),
		}
	}

	if a.validate && schema != nil {
		if err := validateBody(req.Path, schema, resp.GetBody()); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func decodeDecision(path string, body []byte) (*OfferDecision, error) {
	id := gjson.GetBytes(body, "id")
	status := gjson.GetBytes(body, "status")
	if !id.Exists() || status.Type != gjson.String {
		return nil, &ProtocolError{Path: path, Problems: []string{"missing id or status"}}
	}

	decision := &OfferDecision{ID: id.Int(), Status: OfferStatus(status.Str)}
	if decision.Status != StatusProcessing && !decision.Status.Terminal() {
		return nil, &ProtocolError{Path: path, Problems: []string{fmt.Sprintf("unknown status %q", status.Str)}}
	}
	return decision, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
