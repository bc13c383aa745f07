package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	projectLinkSystem    string
	projectLinkWorkspace string
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Manage tracked projects",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked projects",
	Run:   runProjectsList,
}

var projectsLinkCmd = &cobra.Command{
	Use:   "link <project-id> <pm-project-id>",
	Short: "Link a project to a PM project",
	Args:  cobra.ExactArgs(2),
	Run:   runProjectsLink,
}

var projectsUnlinkCmd = &cobra.Command{
	Use:   "unlink <project-id>",
	Short: "Remove a project's PM link",
	Args:  cobra.ExactArgs(1),
	Run:   runProjectsUnlink,
}

func init() {
	projectsLinkCmd.Flags().StringVar(&projectLinkSystem, "system", "plane", "PM system")
	projectsLinkCmd.Flags().StringVar(&projectLinkWorkspace, "workspace", "", "PM workspace")
	projectsCmd.AddCommand(projectsListCmd, projectsLinkCmd, projectsUnlinkCmd)
	rootCmd.AddCommand(projectsCmd)
}

func runProjectsList(cmd *cobra.Command, args []string) {
	db := openStoreFromFlags()
	defer db.Close()

	projects, err := db.ListProjects()
	if err != nil {
		fatal(err)
	}

	if jsonOutput {
		printJSON(projects)
		return
	}
	if len(projects) == 0 {
		fmt.Println("No projects tracked yet")
		return
	}
	for i := range projects {
		p := &projects[i]
		link := "-"
		if p.Linked() {
			link = fmt.Sprintf("%s/%s", p.PMSystem, p.PMProjectID)
		}
		fmt.Printf("%s  %-20s %-16s %s\n", p.ID, p.Name, link, p.Path)
	}
}

func runProjectsLink(cmd *cobra.Command, args []string) {
	db := openStoreFromFlags()
	defer db.Close()

	if err := db.LinkProjectPM(args[0], projectLinkSystem, args[1], projectLinkWorkspace); err != nil {
		fatal(err)
	}
	fmt.Printf("Linked %s -> %s/%s\n", args[0], projectLinkSystem, args[1])
}

func runProjectsUnlink(cmd *cobra.Command, args []string) {
	db := openStoreFromFlags()
	defer db.Close()

	if err := db.UnlinkProjectPM(args[0]); err != nil {
		fatal(err)
	}
	fmt.Printf("Unlinked %s\n", args[0])
}
