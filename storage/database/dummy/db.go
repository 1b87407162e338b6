package dummydb

import (
	"sync"

	"github.com/fluentify/backend/core/exam"
	"github.com/fluentify/backend/core/question"
	"github.com/fluentify/backend/core/session"
	"github.com/fluentify/backend/core/user"
)

type (
	DB struct {
		user     *userTable
		question *questionTable
		exam     *examTable
		session  *sessionTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	questionTable struct {
		sync.RWMutex
		table map[string]*question.Question
	}

	examTable struct {
		sync.RWMutex
		table map[string]*exam.Exam
	}

	sessionTable struct {
		sync.RWMutex
		table map[string]*session.Session
		// answers indexed by session ID, then question ID
		answers map[string]map[string]*session.Answer
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:     &userTable{table: make(map[string]*user.User)},
		question: &questionTable{table: make(map[string]*question.Question)},
		exam:     &examTable{table: make(map[string]*exam.Exam)},
		session: &sessionTable{
			table:   make(map[string]*session.Session),
			answers: make(map[string]map[string]*session.Answer),
		},
	}
	return db, nil
}
