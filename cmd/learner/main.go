package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"learnportal/internal/client"
	"learnportal/internal/config"
	"learnportal/internal/learning"
	"learnportal/internal/models"
	"learnportal/internal/security"
)

func main() {
	cfg := config.Load()

	serverURL := flag.String("server", cfg.AppBaseURL, "Progress API base URL")
	token := flag.String("token", os.Getenv("LEARNPORTAL_TOKEN"), "Bearer token (default: $LEARNPORTAL_TOKEN)")
	secret := flag.String("secret", cfg.JWTSecret, "Sign a token locally with this secret when -token is empty")
	studentID := flag.String("student", "", "Student ID (required)")
	role := flag.String("role", models.RoleStudent, "Viewer role: student, instructor or admin")
	moduleID := flag.String("module", "", "Module ID to work through (required)")
	tick := flag.Duration("tick", 5*time.Second, "Real time between watch time ticks")
	warmup := flag.Duration("warmup", 2*time.Second, "Delay before the first tick of each submodule")
	score := flag.Float64("score", -1, "Submit this quiz score once the quiz unlocks (negative: don't submit)")
	flag.Parse()

	if *studentID == "" || *moduleID == "" {
		flag.Usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bearer := *token
	if bearer == "" {
		minted, err := mintToken(*secret, *studentID, *role)
		if err != nil {
			log.Fatalf("No token: %v", err)
		}
		bearer = minted
	}

	store := client.New(ctx, *serverURL, *studentID, bearer)

	viewerCfg := learning.DefaultConfig(*studentID)
	viewerCfg.Role = learning.Role(*role)
	viewerCfg.TickInterval = *tick
	viewerCfg.WarmUp = *warmup
	viewerCfg.Alerter = learning.AlertFunc(func(message string) {
		fmt.Printf("! %s\n", message)
	})

	viewer := learning.NewViewer(store, viewerCfg, nil, func(state learning.QuizState) {
		fmt.Printf("quiz: %s\n", state)
	})
	defer viewer.Close()

	if err := viewer.Load(ctx, *moduleID); err != nil {
		log.Fatalf("Failed to load module: %v", err)
	}

	module := viewer.Module()
	fmt.Printf("%s (%d submodules)\n", module.Title, len(module.SubModules))

	if err := watchModule(ctx, viewer); err != nil {
		log.Fatalf("Stopped: %v", err)
	}

	if mp, ok := viewer.Tracker().ModuleProgress(); ok {
		fmt.Printf("progress: %d/%d (%.0f%%)\n", mp.CompletedSubModules, mp.TotalSubModules, mp.OverallProgress)
	}

	if *score < 0 {
		return
	}
	if err := viewer.StartQuiz(); err != nil {
		log.Fatalf("Quiz not available (%s): %v", viewer.QuizState(), err)
	}
	last := module.SubModules[len(module.SubModules)-1]
	attempt, err := store.SubmitQuizAttempt(ctx, module.QuizGroupID, last.ID, *score)
	if err != nil {
		log.Fatalf("Failed to submit quiz attempt: %v", err)
	}
	viewer.RefreshAttempts(ctx)
	fmt.Printf("quiz attempt %s recorded with score %.0f\n", attempt.ID, attempt.Score)
}

// watchModule opens each submodule in order and waits for it to complete
func watchModule(ctx context.Context, viewer *learning.Viewer) error {
	total := len(viewer.Module().SubModules)
	for i := 0; i < total; i++ {
		view, err := viewer.Open(ctx, i)
		if err != nil {
			return err
		}
		fmt.Printf("[%d/%d] %s (%s)\n", i+1, total, view.SubModule.Title, view.SubModule.Duration)
		if view.Locked {
			return errors.New(view.Message)
		}

		viewer.Wait()
		if err := ctx.Err(); err != nil {
			return err
		}

		current := viewer.Tracker().Current()
		if current.Completion == learning.CompletionFailed {
			if err := viewer.RetryCompletion(ctx); err != nil {
				return fmt.Errorf("completion of %s failed: %w", view.SubModule.ID, err)
			}
			current = viewer.Tracker().Current()
		}
		fmt.Printf("      watched %ds, %s\n", current.WatchTimeSeconds, current.Completion)
	}
	return nil
}

func mintToken(secret, studentID, role string) (string, error) {
	tokens, err := security.NewTokenManager(secret, time.Hour)
	if err != nil {
		return "", err
	}
	return tokens.Issue(models.Identity{StudentID: studentID, Role: role})
}
