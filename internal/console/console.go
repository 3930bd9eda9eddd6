// Package console is the interactive terminal front end for operators and requesters.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mr1hm/go-aid-dispatch/internal/dispatch"
	"github.com/mr1hm/go-aid-dispatch/internal/geocode"
	"github.com/mr1hm/go-aid-dispatch/internal/models"
	"github.com/mr1hm/go-aid-dispatch/internal/stations"
)

const divider = "------------------------------------------------------------"

// errEOF ends a session when input runs out.
var errEOF = errors.New("end of input")

type Geocoder interface {
	Lookup(ctx context.Context, addr geocode.Address) *models.Location
}

type Console struct {
	sys      *dispatch.System
	geocoder Geocoder
	password string

	in  *bufio.Scanner
	out io.Writer
}

// New builds a console over sys. geocoder may be nil, in which case report
// locations are never resolved.
func New(sys *dispatch.System, geocoder Geocoder, password string, in io.Reader, out io.Writer) *Console {
	return &Console{
		sys:      sys,
		geocoder: geocoder,
		password: password,
		in:       bufio.NewScanner(in),
		out:      out,
	}
}

// Run drives one session. Running out of input ends it without error.
func (c *Console) Run(ctx context.Context) error {
	c.println("Welcome to the Aid Dispatch System")

	err := c.session(ctx)
	if errors.Is(err, errEOF) {
		c.println("")
		return nil
	}
	return err
}

func (c *Console) session(ctx context.Context) error {
	pwd, err := c.prompt("Enter gov password (leave blank if non-government): ")
	if err != nil {
		return err
	}
	if pwd != "" && pwd == c.password {
		slog.Info("operator session started")
		return c.operator(ctx)
	}

	confirm, err := c.prompt("Enter 'non' to continue as non-government (or anything else to exit): ")
	if err != nil {
		return err
	}
	if strings.ToLower(confirm) != "non" {
		c.println("Exiting.")
		return nil
	}
	return c.requester(ctx)
}

func (c *Console) println(a ...any) {
	fmt.Fprintln(c.out, a...)
}

func (c *Console) printf(format string, a ...any) {
	fmt.Fprintf(c.out, format, a...)
}

func (c *Console) prompt(msg string) (string, error) {
	fmt.Fprint(c.out, msg)
	if !c.in.Scan() {
		if err := c.in.Err(); err != nil {
			return "", fmt.Errorf("error reading input: %w", err)
		}
		return "", errEOF
	}
	return strings.TrimSpace(c.in.Text()), nil
}

func (c *Console) promptInt(msg string) (int, bool, error) {
	s, err := c.prompt(msg)
	if err != nil {
		return 0, false, err
	}
	n, convErr := strconv.Atoi(s)
	return n, convErr == nil, nil
}

// Operator

func (c *Console) operator(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		action, err := c.prompt("Enter 'add' to add supplies, 'check' inventory, 'reports' to manage reports, " +
			"'stations' to manage aid centres, 'vehicles' to manage the fleet, or 'exit': ")
		if err != nil {
			return err
		}

		switch strings.ToLower(action) {
		case "add":
			err = c.addSupplies()
		case "check":
			c.checkInventory()
		case "reports":
			err = c.manageReports()
		case "stations":
			err = c.manageStations()
		case "vehicles":
			err = c.manageVehicles(ctx)
		case "exit":
			return nil
		default:
			c.println("Invalid action. Please try again.")
		}
		if err != nil {
			return err
		}
	}
}

func (c *Console) addSupplies() error {
	c.println("\nAvailable supply categories:")
	for i, cat := range models.SupplyCategories {
		if cat.Unit != "" {
			c.printf("%d. %s (measured in %s)\n", i+1, cat.Name, cat.Unit)
		} else {
			c.printf("%d. %s\n", i+1, cat.Name)
		}
	}

	choice, ok, err := c.promptInt("\nEnter category number: ")
	if err != nil {
		return err
	}
	if !ok || choice < 1 || choice > len(models.SupplyCategories) {
		c.println("Invalid choice.")
		return nil
	}
	cat := models.SupplyCategories[choice-1]

	if cat.IsBinary() {
		if err := c.sys.Ledger.AddSupplies(cat.Name, 1); err != nil {
			c.printf("Could not add supplies: %v\n", err)
			return nil
		}
		c.println("Added medical supplies to storage.")
		return nil
	}

	q, ok, err := c.promptInt(fmt.Sprintf("Enter quantity (%s): ", cat.Unit))
	if err != nil {
		return err
	}
	if !ok || q <= 0 {
		c.println("Invalid quantity.")
		return nil
	}
	if err := c.sys.Ledger.AddSupplies(cat.Name, q); err != nil {
		c.printf("Could not add supplies: %v\n", err)
		return nil
	}
	c.printf("Added %s (%s) to storage.\n", cat.Name, cat.FormatQuantity(q))
	return nil
}

func (c *Console) checkInventory() {
	supplies := c.sys.Ledger.Supplies()
	if len(supplies) == 0 {
		c.println("No supplies in storage.")
		return
	}

	c.println("\nCurrent supplies in storage:")
	for _, s := range supplies {
		cat, known := models.LookupCategory(s.Category)
		switch {
		case known && cat.IsBinary():
			status := "Not available"
			if s.Quantity > 0 {
				status = "Available"
			}
			c.printf("Medical supplies: %s\n", status)
		case known:
			c.printf("%s (%s)\n", cat.Name, cat.FormatQuantity(s.Quantity))
		default:
			c.printf("%s: %d\n", s.Category, s.Quantity)
		}
	}
}

func (c *Console) manageReports() error {
	for {
		c.println("\nDisaster Reports Management")
		c.println("1. View reports (full report + address & coordinates)")
		c.println("2. Delete report")
		c.println("3. Back to main menu")
		choice, err := c.prompt("Enter choice (1-3): ")
		if err != nil {
			return err
		}

		switch choice {
		case "1":
			c.viewReports()
		case "2":
			if err := c.deleteReport(); err != nil {
				return err
			}
		case "3":
			return nil
		default:
			c.println("Invalid choice.")
		}
	}
}

func (c *Console) viewReports() {
	reports := c.sys.Ledger.Reports()
	if len(reports) == 0 {
		c.println("No reports available.")
		return
	}

	c.println("\nSaved disaster reports:")
	for i, r := range reports {
		addr, lat, lon := "Address unknown", "N/A", "N/A"
		if r.Location != nil {
			if r.Location.Address != "" {
				addr = r.Location.Address
			}
			if r.Location.Coordinates != nil {
				lat = strconv.FormatFloat(r.Location.Coordinates.Latitude, 'f', -1, 64)
				lon = strconv.FormatFloat(r.Location.Coordinates.Longitude, 'f', -1, 64)
			}
		}
		c.printf("%d. Reporter: %s\n", i+1, r.Name)
		c.printf("   Type   : %s\n", r.DisasterType)
		c.printf("   Details: %s\n", r.Description)
		c.printf("   Address: %s\n", addr)
		c.printf("   Lat/Lon: %s / %s\n", lat, lon)
		c.println(divider)
	}
}

func (c *Console) deleteReport() error {
	reports := c.sys.Ledger.Reports()
	if len(reports) == 0 {
		c.println("No reports available to delete.")
		return nil
	}

	c.println("\nCurrent reports:")
	for i, r := range reports {
		c.printf("%d. %s - %s - %s\n", i+1, r.Timestamp.Format(models.TimestampLayout), r.Name, r.DisasterType)
	}

	index, ok, err := c.promptInt("\nEnter report number to delete (0 to cancel): ")
	if err != nil {
		return err
	}
	switch {
	case !ok:
		c.println("Invalid input.")
	case index == 0:
	case c.sys.Ledger.DeleteReport(index):
		c.println("Report deleted successfully.")
	default:
		c.println("Invalid report number.")
	}
	return nil
}

func (c *Console) manageStations() error {
	for {
		c.println("\nAid Centre Management")
		c.println("1. Add new aid centre")
		c.println("2. List aid centres")
		c.println("3. Back to main menu")
		choice, err := c.prompt("Enter choice (1-3): ")
		if err != nil {
			return err
		}

		switch choice {
		case "1":
			name, err := c.prompt("Enter aid centre name: ")
			if err != nil {
				return err
			}
			region, err := c.prompt(fmt.Sprintf("Enter location (%s): ", strings.Join(stations.RegionNames(), "/")))
			if err != nil {
				return err
			}
			coords, ok := stations.LookupRegion(region)
			if name == "" || !ok {
				c.println("Invalid location.")
				continue
			}
			c.sys.Stations.AddStation(name, coords)
			c.printf("Added aid centre: %s (%s)\n", name, region)
		case "2":
			c.listStations("\nRegistered Aid Centres:", "No aid centres registered.")
		case "3":
			return nil
		default:
			c.println("Invalid choice.")
		}
	}
}

func (c *Console) listStations(header, empty string) {
	list := c.sys.Stations.Stations()
	if len(list) == 0 {
		c.println(empty)
		return
	}
	c.println(header)
	for _, s := range list {
		c.printf(" - %s: latitude=%v, longitude=%v\n", s.Name, s.Location.Latitude, s.Location.Longitude)
	}
}

func (c *Console) manageVehicles(ctx context.Context) error {
	vehicles := c.sys.Fleet.Vehicles()
	if len(vehicles) == 0 {
		c.println("No vehicles registered.")
		return nil
	}

	c.println("\nFleet:")
	for _, v := range vehicles {
		c.printf(" - %s: %s\n", v.Name, v.Status)
	}

	name, err := c.prompt("Enter a dispatched vehicle to mark returned (blank to go back): ")
	if err != nil || name == "" {
		return err
	}
	for _, v := range vehicles {
		if v.Name == name && v.Status == models.VehicleDispatched {
			c.sys.ReturnVehicle(ctx, name)
			c.printf("%s is available again.\n", name)
			return nil
		}
	}
	c.println("No dispatched vehicle by that name.")
	return nil
}

// Requester

func (c *Console) requester(ctx context.Context) error {
	name, err := c.prompt("Enter your name: ")
	if err != nil {
		return err
	}
	if name == "" {
		name = "Requester"
	}
	c.sys.Ledger.AddRequester(name)

	answer, err := c.prompt("Would you like to file a disaster report? (y/n): ")
	if err != nil {
		return err
	}
	if strings.ToLower(answer) == "y" {
		if err := c.fileReport(ctx, name); err != nil {
			return err
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		action, err := c.prompt("Enter 'request' to request aid, 'exit' to quit, or 'stations' to list stations: ")
		if err != nil {
			return err
		}

		switch strings.ToLower(action) {
		case "request":
			more, err := c.requestAid(ctx, name)
			if err != nil {
				return err
			}
			if !more {
				return nil
			}
		case "stations":
			c.listStations("Known help stations (latitude, longitude):", "No help stations registered.")
		case "exit":
			return nil
		default:
			c.println("Invalid action. Please try again.")
		}
	}
}

func (c *Console) fileReport(ctx context.Context, name string) error {
	disasterType, err := c.prompt("Type of natural disaster (e.g., flood, earthquake): ")
	if err != nil {
		return err
	}
	details, err := c.prompt("Please provide brief details about the situation: ")
	if err != nil {
		return err
	}

	c.println("\nPlease provide the location for this report (leave blank if unknown).")
	var addr geocode.Address
	for _, f := range []struct {
		label string
		dst   *string
	}{
		{"Address (number) : ", &addr.Number},
		{"Street name      : ", &addr.Street},
		{"City / Town      : ", &addr.City},
		{"Country          : ", &addr.Country},
	} {
		if *f.dst, err = c.prompt(f.label); err != nil {
			return err
		}
	}

	if c.geocoder != nil {
		if loc := c.geocoder.Lookup(ctx, addr); loc != nil {
			details = models.FormatDetails(details, loc)
		}
	}

	if _, err := c.sys.FileReport(name, disasterType, details); err != nil {
		c.printf("Could not save report: %v\n", err)
		return nil
	}
	c.println("Report saved.")
	return nil
}

// requestAid runs one request round. more reports whether the requester wants to
// keep going.
func (c *Console) requestAid(ctx context.Context, name string) (more bool, err error) {
	c.println("\nAvailable supplies:")

	var offered []models.SupplyCategory
	for _, s := range c.sys.Ledger.Supplies() {
		cat, known := models.LookupCategory(s.Category)
		if !known || s.Quantity <= 0 {
			continue
		}
		offered = append(offered, cat)
		if cat.IsBinary() {
			c.printf("%d. Medical supplies (Available)\n", len(offered))
		} else {
			c.printf("%d. %s (%s available)\n", len(offered), cat.Name, cat.FormatQuantity(s.Quantity))
		}
	}
	if len(offered) == 0 {
		c.println("Sorry, no supplies are currently available.")
		return true, nil
	}

	choice, ok, err := c.promptInt("\nEnter supply number (or 0 to cancel): ")
	if err != nil {
		return false, err
	}
	if !ok {
		c.println("Invalid input. Please try again.")
		return true, nil
	}
	if choice == 0 {
		return true, nil
	}
	if choice < 1 || choice > len(offered) {
		c.println("Invalid choice.")
		return true, nil
	}
	cat := offered[choice-1]

	quoted := c.sys.Ledger.CheckInventory(cat.Name)
	quantity := 1
	if !cat.IsBinary() {
		c.printf("\nAvailable %s: %s\n", cat.Name, cat.FormatQuantity(quoted))
		q, ok, err := c.promptInt(fmt.Sprintf("Enter amount needed (1-%d): ", quoted))
		if err != nil {
			return false, err
		}
		if !ok || q <= 0 || q > quoted {
			c.println("Invalid amount.")
			return true, nil
		}
		quantity = q
	}

	out, err := c.sys.FulfillRequest(ctx, dispatch.Request{
		Category:  cat.Name,
		Quantity:  quantity,
		Quoted:    &quoted,
		Requester: name,
	})
	switch {
	case err == nil:
		c.println(out.Message)
	case errors.Is(err, models.ErrNoVehicleAvailable):
		c.println("No trucks available to dispatch at the moment.")
	case errors.Is(err, models.ErrInsufficientStock), errors.Is(err, models.ErrStaleQuantity):
		c.printf("Sorry, only %d available now.\n", c.sys.Ledger.CheckInventory(cat.Name))
	default:
		c.printf("Request failed: %v\n", err)
	}

	answer, err := c.prompt("\nWould you like to request more supplies? (y/n): ")
	if err != nil {
		return false, err
	}
	return strings.ToLower(answer) == "y", nil
}
