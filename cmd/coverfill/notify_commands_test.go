package main

import (
	"strings"
	"testing"

	"coverfill/internal/testsupport"
)

func TestRunCompletionSendsNotifications(t *testing.T) {
	rec, topic := newNtfyServer(t)
	env := setupCLITestEnv(t, testsupport.WithNtfyTopic(topic))
	input := env.writeInput(t, "Nombre,Género,Tamaño", "Halo,Shooter,8 GB", "Unknown Game,,")

	_, stderr, err := env.run(t, "", "run", "--non-interactive", input)
	if err != nil {
		t.Fatalf("run failed: %v\nstderr: %s", err, stderr)
	}
	requireContains(t, stderr, "Notifications: 1 sent, 0 failed")

	titles, bodies := rec.snapshot()
	if len(titles) != 2 {
		t.Fatalf("expected item and summary notifications, got %d: %v", len(titles), titles)
	}
	if titles[0] != "coverfill - Halo" {
		t.Fatalf("unexpected item title %q", titles[0])
	}
	requireContains(t, bodies[0], "https://img.example/halo.png")
	requireContains(t, bodies[0], "NOMBRE: Halo")
	requireContains(t, bodies[0], "GÉNERO: Shooter")
	requireContains(t, bodies[1], "Processed 2 games")
}

func TestRunNoNotifySkipsDispatch(t *testing.T) {
	rec, topic := newNtfyServer(t)
	env := setupCLITestEnv(t, testsupport.WithNtfyTopic(topic))
	input := env.writeInput(t, "Name", "Halo")

	if _, stderr, err := env.run(t, "", "run", "--non-interactive", "--no-notify", input); err != nil {
		t.Fatalf("run failed: %v\nstderr: %s", err, stderr)
	}
	if titles, _ := rec.snapshot(); len(titles) != 0 {
		t.Fatalf("expected no notifications, got %v", titles)
	}
}

func TestNotifyCommandResendsCompletedItems(t *testing.T) {
	rec, topic := newNtfyServer(t)
	env := setupCLITestEnv(t, testsupport.WithNtfyTopic(topic))
	input := env.writeInput(t, "Name", "Halo", "Portal", "Unknown Game")

	if _, stderr, err := env.run(t, "", "run", "--non-interactive", "--no-notify", input); err != nil {
		t.Fatalf("run failed: %v\nstderr: %s", err, stderr)
	}

	stdout, _, err := env.run(t, "", "notify", "--summary")
	if err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	requireContains(t, stdout, "Sent 1 notifications (0 failed, 2 skipped)")
	requireContains(t, stdout, "Run summary sent")
	titles, _ := rec.snapshot()
	if len(titles) != 2 {
		t.Fatalf("expected item and summary notifications, got %v", titles)
	}
}

func TestTestNotify(t *testing.T) {
	rec, topic := newNtfyServer(t)
	env := setupCLITestEnv(t, testsupport.WithNtfyTopic(topic))

	stdout, _, err := env.run(t, "", "test-notify")
	if err != nil {
		t.Fatalf("test-notify failed: %v", err)
	}
	requireContains(t, stdout, "Test notification sent")
	if titles, _ := rec.snapshot(); len(titles) != 1 {
		t.Fatalf("expected one notification, got %v", titles)
	}
}

func TestNotifyRequiresTopic(t *testing.T) {
	env := setupCLITestEnv(t)

	for _, args := range [][]string{{"test-notify"}, {"notify"}} {
		_, _, err := env.run(t, "", args...)
		if err == nil || !strings.Contains(err.Error(), "ntfy_topic") {
			t.Fatalf("%v: expected missing topic error, got %v", args, err)
		}
	}
}

func TestRunReportsErroredLookups(t *testing.T) {
	rec, topic := newNtfyServer(t)
	env := setupCLITestEnv(t, testsupport.WithNtfyTopic(topic))
	input := env.writeInput(t, "Name", "Halo", "Broken")

	_, stderr, err := env.run(t, "", "run", "--non-interactive", input)
	if err != nil {
		t.Fatalf("run failed: %v\nstderr: %s", err, stderr)
	}
	requireContains(t, stderr, "1 with cover, 0 without results, 1 errored")

	titles, bodies := rec.snapshot()
	if len(titles) != 3 {
		t.Fatalf("expected item, summary, and error notifications, got %v", titles)
	}
	if titles[2] != "coverfill - Error" {
		t.Fatalf("unexpected error title %q", titles[2])
	}
	requireContains(t, bodies[2], "1 lookups failed: Broken")
}
