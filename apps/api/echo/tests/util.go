package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"

	. "github.com/trezcool/lumina/apps/api/echo"
	"github.com/trezcool/lumina/core"
	"github.com/trezcool/lumina/core/announcement"
	"github.com/trezcool/lumina/core/assistant"
	"github.com/trezcool/lumina/core/course"
	"github.com/trezcool/lumina/core/forum"
	"github.com/trezcool/lumina/core/progress"
	"github.com/trezcool/lumina/core/reflection"
	"github.com/trezcool/lumina/core/user"
	appfs "github.com/trezcool/lumina/fs"
	emailsvc "github.com/trezcool/lumina/services/email"
	"github.com/trezcool/lumina/services/judge"
	"github.com/trezcool/lumina/services/ratelimit"
	inmemdb "github.com/trezcool/lumina/storage/database/inmem"
	testutil "github.com/trezcool/lumina/tests"
)

const strongPwd = "Nq7#vuL9!pz"

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testEnv struct {
	app      *Server
	conf     *core.Config
	usrRepo  user.Repository
	crsRepo  course.Repository
	progRepo progress.Repository
	posts    forum.Repository
	mail     *emailsvc.ConsoleServiceMock
}

func setup(t *testing.T) testEnv {
	t.Helper()
	conf := core.NewTestConfig()
	logger := testutil.NewLogger()
	core.ParseEmailTemplates(appfs.FS, conf, logger)
	user.LoadCommonPasswords(appfs.FS, logger)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// set up DB & repos
	db := inmemdb.New()
	env := testEnv{
		conf:     conf,
		usrRepo:  inmemdb.NewUserRepository(db),
		crsRepo:  inmemdb.NewCourseRepository(db),
		progRepo: inmemdb.NewProgressRepository(db),
		posts:    inmemdb.NewForumRepository(db),
		mail:     emailsvc.NewConsoleServiceMock(conf, logger),
	}

	// set up services
	progSvc := progress.NewService(env.progRepo, ratelimit.NewMemoryLimiter(conf.Unlock), logger)

	// set up server
	env.app = NewServer(ServerDeps{
		Conf:            conf,
		Logger:          logger,
		UserSvc:         user.NewService(env.usrRepo, env.mail, logger),
		Catalog:         course.NewCatalog(env.crsRepo, logger),
		ProgressSvc:     progSvc,
		Gate:            reflection.NewGate(judge.NewRules(conf.Reflection), progSvc, logger),
		ForumSvc:        forum.NewService(env.posts, logger),
		AnnouncementSvc: announcement.NewService(inmemdb.NewAnnouncementRepository(db)),
		Assistant:       assistant.New(nil, logger),
		Validate:        validate,
		Translator:      translator,
	})
	return env
}

func (env testEnv) createUser(t *testing.T, name, email string, role user.Role, job user.JobTitle, isVerified bool) user.User {
	t.Helper()
	return testutil.CreateUser(t, env.usrRepo, name, email, strongPwd, role, job, isVerified)
}

func (env testEnv) serve(req *http.Request, rec *httptest.ResponseRecorder) {
	env.app.ServeHTTP(rec, req)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, app *Server, usr user.User) string {
	t.Helper()
	token, err := app.Token(usr)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, env testEnv, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			env.serve(req, rec)
			checkCodeAndData(t, tt, rec)
		})
	}
}
