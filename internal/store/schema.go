package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table names.
const (
	tableLessons         = "lessons"
	tableTests           = "tests"
	tableQuestions       = "questions"
	tableGames           = "games"
	tableLessonProgress  = "lesson_progress"
	tableTestAttempts    = "test_attempts"
	tableGameAttempts    = "game_attempts"
	tableWritingAttempts = "writing_attempts"
	tableNotifications   = "notifications"
	tableVisionEvents    = "vision_request_events"
)

// longText marks a string column as unbounded text on every dialect.
const longText = 2147483647

func idColumn() *schema.Column {
	return &schema.Column{Name: "id", Type: field.TypeString, Size: 64}
}

func refColumn(name string) *schema.Column {
	return &schema.Column{Name: name, Type: field.TypeString, Size: 64}
}

var (
	lessonsColumns = []*schema.Column{
		idColumn(),
		refColumn("classroom_id"),
		{Name: "title", Type: field.TypeString},
		{Name: "chapter", Type: field.TypeString, Default: ""},
		{Name: "order_index", Type: field.TypeInt},
		{Name: "content", Type: field.TypeString, Size: longText},
		{Name: "is_active", Type: field.TypeBool, Default: true},
		{Name: "created_at", Type: field.TypeTime},
	}
	lessonsTable = &schema.Table{
		Name:       tableLessons,
		Columns:    lessonsColumns,
		PrimaryKey: []*schema.Column{lessonsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "lesson_classroom_order", Unique: true, Columns: []*schema.Column{lessonsColumns[1], lessonsColumns[4]}},
		},
	}

	testsColumns = []*schema.Column{
		idColumn(),
		refColumn("lesson_id"),
		refColumn("classroom_id"),
		{Name: "title", Type: field.TypeString},
		{Name: "type", Type: field.TypeEnum, Enums: []string{string(PreTest), string(PostTest)}},
		{Name: "passing_score", Type: field.TypeInt, Default: 60},
		{Name: "is_active", Type: field.TypeBool, Default: true},
		{Name: "created_at", Type: field.TypeTime},
	}
	testsTable = &schema.Table{
		Name:       tableTests,
		Columns:    testsColumns,
		PrimaryKey: []*schema.Column{testsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "test_lesson_type", Columns: []*schema.Column{testsColumns[1], testsColumns[4]}},
		},
	}

	questionsColumns = []*schema.Column{
		idColumn(),
		refColumn("test_id"),
		{Name: "text", Type: field.TypeString, Size: longText},
		{Name: "options", Type: field.TypeJSON},
		{Name: "correct_answer", Type: field.TypeJSON},
		{Name: "order_index", Type: field.TypeInt},
		{Name: "explanation", Type: field.TypeString, Size: longText},
		{Name: "image_url", Type: field.TypeString, Size: 1024, Default: ""},
	}
	questionsTable = &schema.Table{
		Name:       tableQuestions,
		Columns:    questionsColumns,
		PrimaryKey: []*schema.Column{questionsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "question_test_order", Columns: []*schema.Column{questionsColumns[1], questionsColumns[5]}},
		},
	}

	gamesColumns = []*schema.Column{
		idColumn(),
		refColumn("lesson_id"),
		refColumn("classroom_id"),
		{Name: "title", Type: field.TypeString},
		{Name: "type", Type: field.TypeString, Default: ""},
		{Name: "settings", Type: field.TypeJSON, Nullable: true},
		{Name: "is_active", Type: field.TypeBool, Default: true},
		{Name: "created_at", Type: field.TypeTime},
	}
	gamesTable = &schema.Table{
		Name:       tableGames,
		Columns:    gamesColumns,
		PrimaryKey: []*schema.Column{gamesColumns[0]},
		Indexes: []*schema.Index{
			{Name: "game_lesson", Columns: []*schema.Column{gamesColumns[1]}},
		},
	}

	lessonProgressColumns = []*schema.Column{
		refColumn("student_id"),
		refColumn("lesson_id"),
		{Name: "is_completed", Type: field.TypeBool, Default: false},
		{Name: "completed_at", Type: field.TypeTime, Nullable: true},
		{Name: "time_spent", Type: field.TypeInt, Default: 0},
		{Name: "activity_results", Type: field.TypeJSON, Nullable: true},
		{Name: "updated_at", Type: field.TypeTime},
	}
	lessonProgressTable = &schema.Table{
		Name:       tableLessonProgress,
		Columns:    lessonProgressColumns,
		PrimaryKey: []*schema.Column{lessonProgressColumns[0], lessonProgressColumns[1]},
	}

	testAttemptsColumns = []*schema.Column{
		idColumn(),
		refColumn("student_id"),
		refColumn("test_id"),
		{Name: "attempt_number", Type: field.TypeInt},
		{Name: "score", Type: field.TypeInt},
		{Name: "is_passed", Type: field.TypeBool},
		{Name: "answers", Type: field.TypeJSON},
		{Name: "time_spent", Type: field.TypeInt, Default: 0},
		{Name: "completed_at", Type: field.TypeTime},
	}
	testAttemptsTable = &schema.Table{
		Name:       tableTestAttempts,
		Columns:    testAttemptsColumns,
		PrimaryKey: []*schema.Column{testAttemptsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "test_attempt_student_test_number", Unique: true, Columns: []*schema.Column{testAttemptsColumns[1], testAttemptsColumns[2], testAttemptsColumns[3]}},
		},
	}

	gameAttemptsColumns = []*schema.Column{
		idColumn(),
		refColumn("student_id"),
		refColumn("game_id"),
		{Name: "attempt_number", Type: field.TypeInt},
		{Name: "score", Type: field.TypeInt},
		{Name: "level", Type: field.TypeInt, Default: 1},
		{Name: "is_passed", Type: field.TypeBool},
		{Name: "time_spent", Type: field.TypeInt, Default: 0},
		{Name: "data", Type: field.TypeJSON, Nullable: true},
		{Name: "completed_at", Type: field.TypeTime},
	}
	gameAttemptsTable = &schema.Table{
		Name:       tableGameAttempts,
		Columns:    gameAttemptsColumns,
		PrimaryKey: []*schema.Column{gameAttemptsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "game_attempt_student_game_number", Unique: true, Columns: []*schema.Column{gameAttemptsColumns[1], gameAttemptsColumns[2], gameAttemptsColumns[3]}},
		},
	}

	writingAttemptsColumns = []*schema.Column{
		idColumn(),
		refColumn("student_id"),
		{Name: "target_word", Type: field.TypeString},
		{Name: "detected_text", Type: field.TypeString, Size: 1024, Default: ""},
		{Name: "is_correct", Type: field.TypeBool},
		{Name: "confidence", Type: field.TypeFloat64},
		{Name: "explanation", Type: field.TypeString, Size: longText},
		{Name: "method", Type: field.TypeString, Default: ""},
		{Name: "image_path", Type: field.TypeString, Size: 1024, Default: ""},
		{Name: "image_url", Type: field.TypeString, Size: 1024, Default: ""},
		{Name: "image_data", Type: field.TypeString, Size: longText, Nullable: true},
		{Name: "created_at", Type: field.TypeTime},
	}
	writingAttemptsTable = &schema.Table{
		Name:       tableWritingAttempts,
		Columns:    writingAttemptsColumns,
		PrimaryKey: []*schema.Column{writingAttemptsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "writing_attempt_student_created", Columns: []*schema.Column{writingAttemptsColumns[1], writingAttemptsColumns[11]}},
		},
	}

	notificationsColumns = []*schema.Column{
		idColumn(),
		refColumn("student_id"),
		{Name: "title", Type: field.TypeString},
		{Name: "message", Type: field.TypeString, Size: longText},
		{Name: "type", Type: field.TypeEnum, Enums: []string{string(NotifyInfo), string(NotifySuccess), string(NotifyWarning)}},
		{Name: "is_read", Type: field.TypeBool, Default: false},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	notificationsTable = &schema.Table{
		Name:       tableNotifications,
		Columns:    notificationsColumns,
		PrimaryKey: []*schema.Column{notificationsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "notification_student_created", Columns: []*schema.Column{notificationsColumns[1], notificationsColumns[6]}},
		},
	}

	visionEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "provider", Type: field.TypeString},
		{Name: "model", Type: field.TypeString},
		{Name: "purpose", Type: field.TypeString},
		{Name: "input_tokens", Type: field.TypeInt, Default: 0},
		{Name: "output_tokens", Type: field.TypeInt, Default: 0},
		{Name: "latency_ms", Type: field.TypeInt64, Default: 0},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Size: longText},
		{Name: "request_body", Type: field.TypeString, Size: longText},
		{Name: "response_body", Type: field.TypeString, Size: longText},
		{Name: "timestamp", Type: field.TypeTime},
	}
	visionEventsTable = &schema.Table{
		Name:       tableVisionEvents,
		Columns:    visionEventsColumns,
		PrimaryKey: []*schema.Column{visionEventsColumns[0]},
	}

	// Tables holds every table in the schema, in creation order.
	Tables = []*schema.Table{
		lessonsTable,
		testsTable,
		questionsTable,
		gamesTable,
		lessonProgressTable,
		testAttemptsTable,
		gameAttemptsTable,
		writingAttemptsTable,
		notificationsTable,
		visionEventsTable,
	}
)
