package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tandemhq/tandem/internal/schema"
	"github.com/tandemhq/tandem/internal/ui"
)

var partnerCmd = &cobra.Command{
	Use:   "partner",
	Short: "Pair with an accountability partner",
}

var partnerInviteCmd = &cobra.Command{
	Use:   "invite",
	Short: "Create an invite code to share",
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp()
		defer a.Close()

		inv, err := a.flow.CreateInvite(cmd.Context(), a.cfg.UserID)
		if err != nil {
			fatal("creating invite: %v", err)
		}
		fmt.Println(ui.Header("Invite code: " + inv.Code))
		fmt.Println(ui.Dim(fmt.Sprintf("Expires %s", inv.ExpiresAt.Local().Format("Mon Jan 2 15:04"))))
	},
}

var partnerAcceptCmd = &cobra.Command{
	Use:   "accept <code>",
	Short: "Accept a partner's invite code",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp()
		defer a.Close()

		p, err := a.flow.AcceptInvite(cmd.Context(), a.cfg.UserID, args[0])
		if err != nil {
			fatal("accepting invite: %v", err)
		}
		fmt.Println(ui.Success("Paired with " + p.PartnerOf(a.cfg.UserID)))
	},
}

var partnerCancelCmd = &cobra.Command{
	Use:   "cancel <code>",
	Short: "Withdraw a pending invite",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp()
		defer a.Close()

		if err := a.flow.CancelInvite(cmd.Context(), a.cfg.UserID, args[0]); err != nil {
			fatal("cancelling invite: %v", err)
		}
		fmt.Println(ui.Success("Invite cancelled."))
	},
}

var partnerDissolveCmd = &cobra.Command{
	Use:   "dissolve",
	Short: "End the partnership",
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp()
		defer a.Close()

		if err := a.flow.Dissolve(cmd.Context(), a.cfg.UserID); err != nil {
			fatal("dissolving partnership: %v", err)
		}
		fmt.Println(ui.Success("Partnership dissolved."))
	},
}

var partnerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current pairing, refreshed from the service",
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp()
		defer a.Close()

		p, err := a.flow.Refresh(cmd.Context(), a.cfg.UserID)
		if err != nil {
			fatal("checking partnership: %v", err)
		}
		if p == nil {
			fmt.Println(ui.Dim("Not paired."))
			return
		}
		fmt.Println(ui.Header("Paired with " + p.PartnerOf(a.cfg.UserID)))
		fmt.Println(ui.Dim("Since " + p.CreatedAt.Local().Format("Jan 2, 2006")))
	},
}

var partnerGoalsCmd = &cobra.Command{
	Use:   "goals",
	Short: "Show your partner's mirrored goals",
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp()
		defer a.Close()
		ctx := cmd.Context()

		partnerID, err := a.flow.PartnerID(ctx, a.cfg.UserID)
		if err != nil {
			fatal("looking up partner: %v", err)
		}
		if partnerID == "" {
			fmt.Println(ui.Dim("Not paired."))
			return
		}

		goals, err := a.store.ListPartnerGoals(ctx, partnerID)
		if err != nil {
			fatal("listing partner goals: %v", err)
		}
		if len(goals) == 0 {
			fmt.Println(ui.Dim("No mirrored goals yet."))
			return
		}
		for _, g := range goals {
			line := g.Name + " " + ui.ProgressBar(g.CurrentProgress, g.Target)
			if g.Status != schema.GoalActive {
				line += " " + ui.Dim(string(g.Status))
			}
			fmt.Println(line)
		}
	},
}

func init() {
	partnerCmd.AddCommand(partnerInviteCmd, partnerAcceptCmd, partnerCancelCmd,
		partnerDissolveCmd, partnerStatusCmd, partnerGoalsCmd)
	rootCmd.AddCommand(partnerCmd)
}
