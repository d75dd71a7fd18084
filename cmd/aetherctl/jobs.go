package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aetherframe/orchestrator/internal/db"
)

func newJobsCmd(state *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect jobs directly against the store",
	}
	cmd.AddCommand(newJobsShowCmd(state))
	return cmd
}

func newJobsShowCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a single job's record, including its result summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid job id %q: %w", args[0], err)
			}

			jobs := db.NewJobStore(state.database.DB())
			job, err := jobs.Get(context.Background(), id)
			if err != nil {
				return fmt.Errorf("fetch job %d: %w", id, err)
			}
			if job == nil {
				return fmt.Errorf("job %d not found", id)
			}

			fmt.Printf("id:           %d\n", job.ID)
			fmt.Printf("pipeline:     %s\n", job.PipelineID)
			fmt.Printf("target:       %s (%s)\n", job.TargetPath, job.TargetType)
			fmt.Printf("status:       %s\n", job.Status)
			fmt.Printf("progress:     %d%%\n", job.Progress)
			if job.CurrentStage != nil {
				fmt.Printf("current_stage: %s\n", *job.CurrentStage)
			}
			if job.Error != nil {
				fmt.Printf("error:        %s\n", *job.Error)
			}
			fmt.Printf("result:       pipeline=%s stages_executed=%d stages_failed=%d risk_score=%.2f findings=%d artifacts=%d\n",
				job.Result.PipelineID, job.Result.StagesExecuted, job.Result.StagesFailed,
				job.Result.RiskScore, job.Result.FindingsCount, job.Result.ArtifactsCount)

			findings := db.NewFindingStore(state.database.DB())
			count, err := findings.CountByJob(context.Background(), id)
			if err == nil {
				fmt.Printf("findings recorded: %d\n", count)
			}
			return nil
		},
	}
}
