package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/jrsteele09/sahasik/courses"
	"github.com/jrsteele09/sahasik/internal/utils"
	"github.com/jrsteele09/sahasik/lms"
	"github.com/jrsteele09/sahasik/users"
	flag "github.com/spf13/pflag"
)

func coursesCommand(ctx context.Context, client *lms.Client, args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}

	switch sub {
	case "list":
		list, err := client.Courses.List(ctx)
		if err != nil {
			return err
		}
		return printCourses(list)
	case "search":
		list, err := client.Courses.Search(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		return printCourses(list)
	case "get":
		id, err := idArg(args)
		if err != nil {
			return err
		}
		course, err := client.Courses.Get(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(course)
	case "create":
		course, err := client.Courses.Create(ctx, courses.CreateRequest{
			Name:        *courseName,
			Code:        *courseCode,
			Description: *description,
			Credits:     *credits,
			Level:       courses.Level(*courseLevel),
		})
		if err != nil {
			return err
		}
		return printJSON(course)
	case "update":
		id, err := idArg(args)
		if err != nil {
			return err
		}
		course, err := client.Courses.Update(ctx, id, courseUpdate())
		if err != nil {
			return err
		}
		return printJSON(course)
	case "delete":
		id, err := idArg(args)
		if err != nil {
			return err
		}
		return client.Courses.Delete(ctx, id)
	}
	return fmt.Errorf("unknown courses command %q", sub)
}

// courseUpdate sends only the course flags given on the command line
func courseUpdate() courses.UpdateRequest {
	changed := flag.CommandLine.Changed
	return courses.UpdateRequest{
		Name:        utils.PtrIf(changed("name"), *courseName),
		Code:        utils.PtrIf(changed("code"), *courseCode),
		Description: utils.PtrIf(changed("description"), *description),
		Credits:     utils.PtrIf(changed("credits"), *credits),
		Level:       utils.PtrIf(changed("level"), courses.Level(*courseLevel)),
	}
}

func usersCommand(ctx context.Context, client *lms.Client, args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub = args[0]
	}

	var (
		list []users.User
		err  error
	)
	switch sub {
	case "list":
		list, err = client.Users.List(ctx, 0)
	case "teachers":
		list, err = client.Users.Teachers(ctx)
	case "students":
		list, err = client.Users.Students(ctx)
	default:
		return fmt.Errorf("unknown users command %q", sub)
	}
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tNAME\tROLE\tEMAIL")
	for _, u := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", u.ID, u.Username, u.FullName, u.Role, u.Email)
	}
	return w.Flush()
}

func printCourses(list []courses.Course) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCODE\tNAME\tLEVEL\tCREDITS")
	for _, c := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n", c.ID, c.Code, c.Name, c.Level, c.Credits)
	}
	return w.Flush()
}
