package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	echoapi "github.com/fluentify/backend/apps/api/echo"
	"github.com/fluentify/backend/core/exam"
	"github.com/fluentify/backend/core/question"
	"github.com/fluentify/backend/core/user"
	testutil "github.com/fluentify/backend/tests"
)

func Test_examApi_query(t *testing.T) {
	teacher := testutil.CreateUser(t, usrRepo, "Ms Diallo", "examq-diallo", "examq-diallo@test.cd", "", []string{user.RoleTeacher}, true)
	learner := testutil.CreateUser(t, usrRepo, "Abel", "examq-abel", "examq-abel@test.cd", "", []string{user.RoleLearner}, true)

	q := testutil.CreateQuestion(t, qRepo, question.TypeMultipleChoice, "Pick A. (exam query)",
		[]question.Option{{Key: "a", Label: "A"}, {Key: "b", Label: "B"}}, "a")
	draft := testutil.CreateExam(t, examRepo, teacher, "Query Draft", exam.GradingAuto, exam.StatusDraft, 30, q.ID)
	published := testutil.CreateExam(t, examRepo, teacher, "Query Published", exam.GradingAuto, exam.StatusPublished, 30, q.ID)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{
			name: "Learners only see published exams", token: getToken(t, learner),
			wantCode: http.StatusOK, wantData: marshallList(t, published),
		},
		{
			name: "Staff see drafts too", token: getToken(t, teacher),
			wantCode: http.StatusOK, wantData: marshallList(t, draft, published),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/v1/exams?search=Query"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_examApi_create(t *testing.T) {
	teacher := testutil.CreateUser(t, usrRepo, "Ms Okoro", "examc-okoro", "examc-okoro@test.cd", "", []string{user.RoleTeacher}, true)
	learner := testutil.CreateUser(t, usrRepo, "Bintou", "examc-bintou", "examc-bintou@test.cd", "", []string{user.RoleLearner}, true)

	q := testutil.CreateQuestion(t, qRepo, question.TypeMultipleChoice, "Pick B. (exam create)",
		[]question.Option{{Key: "a", Label: "A"}, {Key: "b", Label: "B"}}, "b")

	body := marshallObj(t, exam.NewExam{
		Title:           "Placement Test",
		DurationMinutes: 45,
		GradingMethod:   exam.GradingAuto,
		QuestionIDs:     []string{q.ID},
	})

	tests := []httpTest{
		{name: "Auth required", body: body, wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{name: "Staff required", body: body, token: getToken(t, learner), wantCode: http.StatusForbidden, wantData: marshallObj(t, errForbidden)},
		{name: "Missing fields", body: marshallObj(t, exam.NewExam{Title: "No method"}), token: getToken(t, teacher), wantCode: http.StatusBadRequest},
		{name: "Created as draft", body: body, token: getToken(t, teacher), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/exams"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var exm exam.Exam
				if err := json.Unmarshal(rec.Body.Bytes(), &exm); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if exm.Status != exam.StatusDraft {
					t.Errorf("status = %q; want %q", exm.Status, exam.StatusDraft)
				}
				if exm.OwnerID != teacher.ID {
					t.Errorf("ownerID = %q; want %q", exm.OwnerID, teacher.ID)
				}
				if exm.ManualWeight != exam.DefaultManualWeight {
					t.Errorf("manualWeight = %v; want %v", exm.ManualWeight, exam.DefaultManualWeight)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_examApi_lifecycle(t *testing.T) {
	teacher := testutil.CreateUser(t, usrRepo, "Mr Kone", "examl-kone", "examl-kone@test.cd", "", []string{user.RoleTeacher}, true)
	learner := testutil.CreateUser(t, usrRepo, "Chadia", "examl-chadia", "examl-chadia@test.cd", "", []string{user.RoleLearner}, true)
	teacherToken := getToken(t, teacher)

	q := testutil.CreateQuestion(t, qRepo, question.TypeMultipleChoice, "Pick C. (exam lifecycle)",
		[]question.Option{{Key: "a", Label: "A"}, {Key: "c", Label: "C"}}, "c")
	exm := testutil.CreateExam(t, examRepo, teacher, "Lifecycle Exam", exam.GradingAuto, exam.StatusDraft, 30, q.ID)

	// drafts are hidden from learners
	req, rec := newAuthRequest(http.MethodGet, "/v1/exams/"+exm.ID, getToken(t, learner))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("draft retrieve: code = %v; want %v", rec.Code, http.StatusNotFound)
	}

	// publish
	req, rec = newAuthRequest(http.MethodPost, "/v1/exams/"+exm.ID+"/publish", teacherToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("publish: code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	// questions are frozen once published
	body := marshallObj(t, exam.UpdateExam{QuestionIDs: []string{q.ID}})
	req, rec = newAuthRequest(http.MethodPut, "/v1/exams/"+exm.ID, teacherToken, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("frozen update: code = %v; want %v", rec.Code, http.StatusConflict)
	}

	// learners get redacted questions
	req, rec = newAuthRequest(http.MethodGet, "/v1/exams/"+exm.ID, getToken(t, learner))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("retrieve: code = %v; want %v", rec.Code, http.StatusOK)
	}
	var detail echoapi.ExamDetailResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if len(detail.Questions) != 1 {
		t.Fatalf("len(questions) = %v; want 1", len(detail.Questions))
	}
	if detail.Questions[0].CorrectAnswer != "" {
		t.Error("correct answer leaked to learner")
	}

	// archive closes the exam
	req, rec = newAuthRequest(http.MethodPost, "/v1/exams/"+exm.ID+"/archive", teacherToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("archive: code = %v; want %v", rec.Code, http.StatusOK)
	}

	// archiving twice is a conflict
	req, rec = newAuthRequest(http.MethodPost, "/v1/exams/"+exm.ID+"/archive", teacherToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("double archive: code = %v; want %v", rec.Code, http.StatusConflict)
	}
}
