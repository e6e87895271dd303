package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"elearning-quiz/internal/domain"
	"github.com/goccy/go-json"
	"github.com/imroc/req/v3"
	"github.com/pkg/errors"
)

const DefaultBaseURL = "http://localhost:8080"

// TokenSource provides the bearer token for authenticated calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource for a token known up front (e.g. forwarded by a gateway client).
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", domain.ErrNotAuthenticated
	}
	return string(t), nil
}

type tokenCtxKey struct{}

// ContextWithToken attaches a bearer token for ContextToken to pick up.
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenCtxKey{}, token)
}

// ContextToken authenticates each call with the token carried by its context. A gateway shares
// one client (and one question cache) between players this way.
type ContextToken struct{}

func (ContextToken) Token(ctx context.Context) (string, error) {
	if token, ok := ctx.Value(tokenCtxKey{}).(string); ok && token != "" {
		return token, nil
	}
	return "", domain.ErrNotAuthenticated
}

// Response is the envelope every endpoint of the quiz API answers with.
type Response struct {
	StatusCode       int                     `json:"statusCode"`
	Message          string                  `json:"message,omitempty"`
	Token            string                  `json:"token,omitempty"`
	Role             string                  `json:"role,omitempty"`
	ExpirationTime   string                  `json:"expirationTime,omitempty"`
	User             *domain.User            `json:"user,omitempty"`
	UserList         []domain.User           `json:"userList,omitempty"`
	QuizQuestion     *domain.QuestionRecord  `json:"quizQuestion,omitempty"`
	QuizQuestionList []domain.QuestionRecord `json:"quizQuestionList,omitempty"`
}

type scorePayload struct {
	UserScore int `json:"user_score"`
}

// Client talks to the e-learning REST API.
type Client struct {
	http   *req.Client
	tokens TokenSource
}

func NewClient(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if tokens == nil {
		tokens = StaticToken("")
	}
	httpClient := req.C().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetJsonMarshal(json.Marshal).
		SetJsonUnmarshal(json.Unmarshal).
		SetCommonHeader("Accept", "application/json")
	return &Client{http: httpClient, tokens: tokens}
}

// WithToken returns a client sharing the transport that authenticates with token.
func (c *Client) WithToken(token string) *Client {
	return &Client{http: c.http, tokens: StaticToken(token)}
}

/** Authentication **/

func (c *Client) Register(ctx context.Context, user domain.User) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/auth/register", user, false)
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

func (c *Client) Login(ctx context.Context, login domain.LoginRequest) (domain.Session, error) {
	resp, err := c.do(ctx, http.MethodPost, "/auth/login", login, false)
	if err != nil {
		return domain.Session{}, err
	}
	return domain.Session{Token: resp.Token, Role: resp.Role, ExpirationTime: resp.ExpirationTime}, nil
}

/** Users **/

func (c *Client) ListUsers(ctx context.Context) ([]domain.User, error) {
	resp, err := c.do(ctx, http.MethodGet, "/users/all", nil, true)
	if err != nil {
		return nil, err
	}
	return resp.UserList, nil
}

func (c *Client) GetUser(ctx context.Context, id int64) (domain.User, error) {
	resp, err := c.do(ctx, http.MethodGet, "/users/get-user-by-id/"+strconv.FormatInt(id, 10), nil, true)
	if err != nil {
		return domain.User{}, err
	}
	return userOf(resp)
}

func (c *Client) LoggedInUser(ctx context.Context) (domain.User, error) {
	resp, err := c.do(ctx, http.MethodGet, "/users/get-logged-in-user-data", nil, true)
	if err != nil {
		return domain.User{}, err
	}
	return userOf(resp)
}

func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodDelete, "/users/delete-user-by-id/"+strconv.FormatInt(id, 10), nil, true)
	return err
}

func (c *Client) UpdateProfile(ctx context.Context, user domain.User) (domain.User, error) {
	resp, err := c.do(ctx, http.MethodPut, "/users/update-profile", user, true)
	if err != nil {
		return domain.User{}, err
	}
	if resp.User == nil {
		return user, nil
	}
	return *resp.User, nil
}

func (c *Client) SaveScore(ctx context.Context, score int) error {
	_, err := c.do(ctx, http.MethodPut, "/users/save-score", scorePayload{UserScore: score}, true)
	return err
}

/** Quiz questions **/

func (c *Client) ListQuestions(ctx context.Context) ([]domain.QuestionRecord, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/quiz-questions/getAllQuizzes", nil, true)
	if err != nil {
		return nil, err
	}
	return resp.QuizQuestionList, nil
}

func (c *Client) GetQuestion(ctx context.Context, id int64) (domain.QuestionRecord, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/quiz-questions/getQuizById/"+strconv.FormatInt(id, 10), nil, true)
	if err != nil {
		return domain.QuestionRecord{}, err
	}
	return questionOf(resp)
}

func (c *Client) AddQuestion(ctx context.Context, rec domain.QuestionRecord) (domain.QuestionRecord, error) {
	rec.ID = 0
	resp, err := c.do(ctx, http.MethodPost, "/api/quiz-questions/addQuiz", rec, true)
	if err != nil {
		return domain.QuestionRecord{}, err
	}
	if resp.QuizQuestion == nil {
		return rec, nil
	}
	return *resp.QuizQuestion, nil
}

func (c *Client) UpdateQuestion(ctx context.Context, id int64, rec domain.QuestionRecord) (domain.QuestionRecord, error) {
	resp, err := c.do(ctx, http.MethodPut, "/api/quiz-questions/updateQuiz/"+strconv.FormatInt(id, 10), rec, true)
	if err != nil {
		return domain.QuestionRecord{}, err
	}
	if resp.QuizQuestion == nil {
		rec.ID = id
		return rec, nil
	}
	return *resp.QuizQuestion, nil
}

func (c *Client) DeleteQuestion(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/quiz-questions/deleteQuiz/"+strconv.FormatInt(id, 10), nil, true)
	return err
}

/** Quiz session collaborators **/

// FetchQuestions serves the quiz session with the question list.
func (c *Client) FetchQuestions(ctx context.Context) ([]domain.Question, error) {
	records, err := c.ListQuestions(ctx)
	if err != nil {
		return nil, err
	}
	questions := make([]domain.Question, 0, len(records))
	for _, rec := range records {
		questions = append(questions, rec.ToQuestion())
	}
	return questions, nil
}

// SubmitScore saves the final score of a quiz session for the token holder.
func (c *Client) SubmitScore(ctx context.Context, score int) error {
	return c.SaveScore(ctx, score)
}

/** Gateway collaborators **/

// Authenticate resolves the user a forwarded token belongs to.
func (c *Client) Authenticate(ctx context.Context, token string) (domain.User, error) {
	return c.WithToken(token).LoggedInUser(ctx)
}

// Users lists all users on behalf of the token holder.
func (c *Client) Users(ctx context.Context, token string) ([]domain.User, error) {
	return c.WithToken(token).ListUsers(ctx)
}

func (c *Client) do(ctx context.Context, method, path string, body any, authenticated bool) (*Response, error) {
	r := c.http.R().SetContext(ctx)
	if authenticated {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		r.SetBearerAuthToken(token)
	}
	if body != nil {
		r.SetBody(body)
	}

	resp, err := r.Send(method, path)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrNetwork, "%s %s: %v", method, path, err)
	}

	var out Response
	if data := resp.Bytes(); len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil && resp.IsSuccessState() {
			return nil, errors.Wrapf(err, "decode %s %s", method, path)
		}
	}
	if !resp.IsSuccessState() || out.StatusCode >= http.StatusBadRequest {
		status := out.StatusCode
		if status == 0 {
			status = resp.GetStatusCode()
		}
		return nil, errors.Wrapf(domain.NewAPIError(status, out.Message), "%s %s", method, path)
	}
	return &out, nil
}

func userOf(resp *Response) (domain.User, error) {
	if resp.User == nil {
		return domain.User{}, errors.Wrap(domain.ErrNotFound, "response carries no user")
	}
	return *resp.User, nil
}

func questionOf(resp *Response) (domain.QuestionRecord, error) {
	if resp.QuizQuestion == nil {
		return domain.QuestionRecord{}, errors.Wrap(domain.ErrNotFound, "response carries no quiz question")
	}
	return *resp.QuizQuestion, nil
}
