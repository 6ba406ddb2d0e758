package gpio

import (
	"slices"
	"strings"
)

// Inventory answers descriptive queries about controllers and lines.
// It never requests a line, so it does not interact with the Cache.
type Inventory struct {
	driver Driver
	logger Logger
}

// NewInventory creates an inventory over driver.
func NewInventory(driver Driver) *Inventory {
	return &Inventory{driver: driver, logger: noopLogger{}}
}

// SetLogger sets the logger for the inventory.
func (i *Inventory) SetLogger(logger Logger) {
	i.logger = logger
}

// ListControllers describes every controller, ordered by name.
// Controllers that cannot be opened are logged and skipped.
func (i *Inventory) ListControllers() ([]ControllerInfo, error) {
	names, err := i.driver.Controllers()
	if err != nil {
		return nil, driverError(StageListControllers, PinID{}, err)
	}

	infos := make([]ControllerInfo, 0, len(names))
	for _, name := range names {
		ctrl, err := i.driver.OpenController(name)
		if err != nil {
			i.logger.Error("unable to access controller in list", "controller", name, "error", err)
			continue
		}
		infos = append(infos, ctrl.Info())
		i.closeController(name, ctrl)
	}

	slices.SortFunc(infos, func(a, b ControllerInfo) int {
		return strings.Compare(a.Name, b.Name)
	})
	return infos, nil
}

// ListPins describes every line of a controller, ordered by offset.
// Lines whose info cannot be read are logged and skipped.
func (i *Inventory) ListPins(controller string) ([]PinInfo, error) {
	ctrl, err := i.driver.OpenController(controller)
	if err != nil {
		return nil, driverError(StageOpenController, PinID{Controller: controller}, err)
	}
	defer i.closeController(controller, ctrl)

	numLines := ctrl.Info().NumLines
	pins := make([]PinInfo, 0, numLines)
	for offset := range numLines {
		pin := NewPinID(controller, offset)
		line, err := ctrl.Line(offset)
		if err != nil {
			i.logger.Error("unable to access line", "pin", pin.String(), "error", err)
			continue
		}
		info, err := line.Info()
		if err != nil {
			i.logger.Error("unable to access line info", "pin", pin.String(), "error", err)
			continue
		}
		pins = append(pins, info)
	}
	return pins, nil
}

// DescribePin returns the current info for a single line.
func (i *Inventory) DescribePin(pin PinID) (PinInfo, error) {
	ctrl, err := i.driver.OpenController(pin.Controller)
	if err != nil {
		return PinInfo{}, driverError(StageOpenController, pin, err)
	}
	defer i.closeController(pin.Controller, ctrl)

	line, err := ctrl.Line(pin.Offset)
	if err != nil {
		return PinInfo{}, driverError(StageGetLine, pin, err)
	}
	info, err := line.Info()
	if err != nil {
		return PinInfo{}, driverError(StageLineInfo, pin, err)
	}
	return info, nil
}

func (i *Inventory) closeController(name string, ctrl Controller) {
	if err := ctrl.Close(); err != nil {
		i.logger.Warn("closing controller failed", "controller", name, "error", err)
	}
}
