package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jovaandres/rest-api-ev/internal/model"
	"github.com/jovaandres/rest-api-ev/internal/store/memstore"

	json "github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

func TestMailerSendsVerification(t *testing.T) {
	d := &fakeDialer{}
	m := &Mailer{from: DefaultMailFrom, dialer: d}

	err := m.Notify(context.Background(), Message{
		Kind: MailVerification,
		To:   "ann@x.com",
		Name: "Ann",
		Link: "http://localhost:5173/verify/ann@x.com/tok",
	})
	require.NoError(t, err)
	require.Len(t, d.sent, 1)

	sent := d.sent[0]
	assert.Equal(t, []string{"ann@x.com"}, sent.GetHeader("To"))
	assert.Equal(t, []string{DefaultMailFrom}, sent.GetHeader("From"))

	assert.Equal(t, []string{subjects[MailVerification]}, sent.GetHeader("Subject"))
}

func TestRenderBody(t *testing.T) {
	body, err := renderBody(Message{
		Kind: MailReset,
		To:   "ann@x.com",
		Name: "Ann",
		Link: "http://localhost:5173/reset/ann@x.com/tok",
	})
	require.NoError(t, err)
	assert.Contains(t, body, "Hi Ann")
	assert.Contains(t, body, `href="http://localhost:5173/reset/ann@x.com/tok"`)
	assert.Contains(t, body, "registered as ann@x.com")
}

func TestMailerRejectsUnknownKind(t *testing.T) {
	m := &Mailer{from: DefaultMailFrom, dialer: &fakeDialer{}}

	err := m.Notify(context.Background(), Message{Kind: "spam", To: "ann@x.com"})
	assert.Error(t, err)
}

func TestMailerPropagatesDialError(t *testing.T) {
	m := &Mailer{from: DefaultMailFrom, dialer: &fakeDialer{err: errors.New("smtp down")}}

	err := m.Notify(context.Background(), Message{Kind: MailReset, To: "ann@x.com"})
	assert.ErrorContains(t, err, "smtp down")
}

type fakeChannel struct {
	key string
	msg amqp.Publishing
	err error
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	f.key, f.msg = key, msg
	return f.err
}

func (f *fakeChannel) Close() error { return nil }

func TestQueueNotifierPublishes(t *testing.T) {
	ch := &fakeChannel{}
	q := &QueueNotifier{channel: ch, queue: "mail"}

	in := Message{Kind: MailReset, To: "ann@x.com", Name: "Ann", Link: "http://x/reset/ann@x.com/t"}
	require.NoError(t, q.Notify(context.Background(), in))

	assert.Equal(t, "mail", ch.key)
	assert.Equal(t, "application/json", ch.msg.ContentType)
	assert.Equal(t, amqp.Persistent, ch.msg.DeliveryMode)

	var out Message
	require.NoError(t, json.Unmarshal(ch.msg.Body, &out))
	assert.Equal(t, in, out)

	assert.NoError(t, q.Close())
}

func TestQueueNotifierError(t *testing.T) {
	q := &QueueNotifier{channel: &fakeChannel{err: errors.New("channel closed")}, queue: "mail"}

	assert.Error(t, q.Notify(context.Background(), Message{Kind: MailReset, To: "ann@x.com"}))
}

func TestLogNotifier(t *testing.T) {
	assert.NoError(t, LogNotifier{}.Notify(context.Background(), Message{Kind: MailReset}))
}

func TestTokenCleanup(t *testing.T) {
	st := memstore.New()
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, st.UpsertToken(ctx, &model.AuthToken{
		AccountID: "a", Purpose: model.PurposeReset, TokenID: "old", ExpiresAt: time.Now().Add(-time.Minute),
	}))
	require.NoError(t, st.UpsertToken(ctx, &model.AuthToken{
		AccountID: "b", Purpose: model.PurposeReset, TokenID: "live", ExpiresAt: time.Now().Add(time.Hour),
	}))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		TokenCleanup(ctx, 10*time.Millisecond, st)
	}()

	assert.Eventually(t, func() bool {
		_, err := st.FindToken(context.Background(), "a", model.PurposeReset)
		return err != nil
	}, time.Second, 10*time.Millisecond)

	cancel()
	wg.Wait()

	_, err := st.FindToken(context.Background(), "b", model.PurposeReset)
	assert.NoError(t, err)
}
