package device

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Param is a controller setting applied at startup.
type Param struct {
	Name  string
	Value string
}

// ParseParams reads "name=value,name=value". Blank entries are ignored.
func ParseParams(s string) ([]Param, error) {
	var out []Param
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		name, value = strings.TrimSpace(name), strings.TrimSpace(value)
		if !ok || name == "" || value == "" {
			return nil, fmt.Errorf("invalid device param %q", part)
		}
		if strings.ContainsAny(name+value, "<>?:") {
			return nil, fmt.Errorf("device param %q contains reserved characters", part)
		}
		out = append(out, Param{Name: name, Value: value})
	}
	return out, nil
}

// ApplyParams logs the current value of each parameter and then assigns the
// configured one.
func (c *Client) ApplyParams(ctx context.Context, params []Param) error {
	for _, p := range params {
		prev, err := c.GetParam(ctx, p.Name)
		if err != nil {
			return err
		}
		if err := c.SetParam(ctx, p.Name, p.Value); err != nil {
			return err
		}
		c.logger.Info("device_param_set",
			zap.String("name", p.Name),
			zap.String("previous", prev),
			zap.String("value", p.Value))
	}
	return nil
}

// ReportParams queries each name and returns the values in order.
func (c *Client) ReportParams(ctx context.Context, names []string) (map[string]string, error) {
	out := make(map[string]string, len(names))
	for _, name := range names {
		v, err := c.GetParam(ctx, name)
		if err != nil {
			return out, err
		}
		out[name] = v
		c.logger.Info("device_param", zap.String("name", name), zap.String("value", v))
	}
	return out, nil
}
