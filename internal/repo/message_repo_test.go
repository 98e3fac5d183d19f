package repo

import (
	"context"
	"testing"

	"chatroom-backend/internal/domain"
)

func TestCreateMessage_SetsFields(t *testing.T) {
	db := newRepoDB(t, &domain.Chatroom{}, &domain.Message{})
	room, _ := CreateChatroom(context.Background(), db, "u1", "general")

	m, err := CreateMessage(db, room.ID, "u1", domain.RoleUser, "hello")
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if m.ID == "" || m.ChatroomID != room.ID || m.Role != domain.RoleUser || m.Content != "hello" {
		t.Fatalf("unexpected Message fields: %+v", m)
	}
}

func TestListMessages_ChronologicalOrder(t *testing.T) {
	db := newRepoDB(t, &domain.Chatroom{}, &domain.Message{})
	room, _ := CreateChatroom(context.Background(), db, "u1", "general")

	first, _ := CreateMessage(db, room.ID, "u1", domain.RoleUser, "first")
	second, _ := CreateMessage(db, room.ID, "u1", domain.RoleAssistant, "second")
	third, _ := CreateMessage(db, room.ID, "u1", domain.RoleUser, "third")

	msgs, err := ListMessages(db, room.ID, 0)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].ID != first.ID || msgs[1].ID != second.ID || msgs[2].ID != third.ID {
		t.Fatalf("out of order: %+v", msgs)
	}
}

func TestListMessages_LimitCapsResult(t *testing.T) {
	db := newRepoDB(t, &domain.Chatroom{}, &domain.Message{})
	room, _ := CreateChatroom(context.Background(), db, "u1", "general")

	for i := 0; i < 5; i++ {
		if _, err := CreateMessage(db, room.ID, "u1", domain.RoleUser, "m"); err != nil {
			t.Fatalf("CreateMessage: %v", err)
		}
	}

	msgs, err := ListMessages(db, room.ID, 2)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
}

func TestCountMessages(t *testing.T) {
	db := newRepoDB(t, &domain.Chatroom{}, &domain.Message{})
	room, _ := CreateChatroom(context.Background(), db, "u1", "general")

	if n, _ := CountMessages(db, room.ID); n != 0 {
		t.Fatalf("expected 0, got %d", n)
	}
	_, _ = CreateMessage(db, room.ID, "u1", domain.RoleUser, "hi")
	if n, _ := CountMessages(db, room.ID); n != 1 {
		t.Fatalf("expected 1, got %d", n)
	}
}

func TestGetMessage_Missing(t *testing.T) {
	db := newRepoDB(t, &domain.Message{})
	if _, err := GetMessage(db, "nope"); err == nil {
		t.Fatal("expected error for missing message")
	}
}
