package store

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flexibleSQLMatcher builds a regex that ignores whitespace differences.
func flexibleSQLMatcher(sql string) string {
	trimmed := strings.TrimSpace(sql)
	return regexp.MustCompile(`\s+`).ReplaceAllString(regexp.QuoteMeta(trimmed), `\s+`)
}

func newMockStore(t *testing.T) (*Postgres, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	mock.ExpectPing()
	s, err := NewPostgres(context.Background(), mock, nil)
	require.NoError(t, err)
	return s, mock
}

func TestNewPostgresPingFails(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	pingErr := errors.New("database unavailable")
	mock.ExpectPing().WillReturnError(pingErr)

	_, err = NewPostgres(context.Background(), mock, nil)
	assert.ErrorIs(t, err, pingErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEnsureSchema(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(flexibleSQLMatcher(sqlCreateTable)).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPreparePostgresCreatesSchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectPing()
	mock.ExpectExec(flexibleSQLMatcher(sqlCreateTable)).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	s, err := preparePostgres(context.Background(), mock, nil)
	require.NoError(t, err)
	assert.NotNil(t, s)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPreparePostgresSchemaFails(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	denied := errors.New("permission denied")
	mock.ExpectPing()
	mock.ExpectExec(flexibleSQLMatcher(sqlCreateTable)).WillReturnError(denied)

	s, err := preparePostgres(context.Background(), mock, nil)
	assert.ErrorIs(t, err, denied)
	assert.Nil(t, s)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGet(t *testing.T) {
	s, mock := newMockStore(t)
	doc := `{"mood":0.1,"energy":0.5,"trust":0.5}`
	mock.ExpectQuery(flexibleSQLMatcher(sqlGet)).
		WithArgs(KeyMood).
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow([]byte(doc)))

	got, err := s.Get(context.Background(), KeyMood)
	require.NoError(t, err)
	assert.JSONEq(t, doc, string(got))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetMissing(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(flexibleSQLMatcher(sqlGet)).
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPutUpserts(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return now }

	value := []byte(`{"warmth":0.7}`)
	mock.ExpectExec(flexibleSQLMatcher(sqlPut)).
		WithArgs(KeyPersonality, value, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.Put(context.Background(), KeyPersonality, value))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPutError(t *testing.T) {
	s, mock := newMockStore(t)
	boom := errors.New("conn reset")
	mock.ExpectExec(flexibleSQLMatcher(sqlPut)).
		WithArgs(KeyMood, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(boom)

	err := s.Put(context.Background(), KeyMood, []byte(`{}`))
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDelete(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(flexibleSQLMatcher(sqlDelete)).
		WithArgs(KeyMood).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, s.Delete(context.Background(), KeyMood))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBacksRepository(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(flexibleSQLMatcher(sqlGet)).
		WithArgs(KeyPersonality).
		WillReturnRows(pgxmock.NewRows([]string{"value"}).
			AddRow([]byte(`{"warmth":2,"playfulness":0.5,"curiosity":0.5}`)))

	p, err := NewRepository(s).LoadPersonality(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.0, p.Warmth)
	assert.NoError(t, mock.ExpectationsWereMet())
}
