package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"basket/internal/core"
	"basket/internal/grouping"
	"basket/internal/models"
)

// Service is the application surface the MCP tools call.
// *core.Service implements it; tests can inject a stub.
type Service interface {
	Add(ctx context.Context, name, category, store string) (models.Item, error)
	TogglePurchased(ctx context.Context, id string) (models.Item, error)
	Delete(ctx context.Context, id string) (models.Item, error)
	List(ctx context.Context) ([]models.Item, error)
	Grouped(ctx context.Context, store string) ([]grouping.CategoryGroup, error)
	Status(ctx context.Context) (core.Status, error)
}

// RunServer runs the MCP server over the stdio transport until the
// context is cancelled or the client disconnects. Nothing may write to
// stdout while it runs; logs go to stderr.
func RunServer(ctx context.Context, svc Service) error {
	mcpServer := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "basket",
		Version: "0.1.0",
	}, nil)

	// Register tools
	if err := registerTools(mcpServer, svc); err != nil {
		return fmt.Errorf("failed to register tools: %w", err)
	}

	// Run server with stdio transport
	return mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// registerTools registers all basket tools with the MCP server
func registerTools(s *mcpsdk.Server, svc Service) error {
	// Register basket_add tool
	addHandler := func(ctx context.Context, req *mcpsdk.CallToolRequest, input map[string]interface{}) (*mcpsdk.CallToolResult, map[string]interface{}, error) {
		result, err := HandleBasketAdd(ctx, svc, input)
		if err != nil {
			return toolError(err), nil, nil
		}
		return nil, result, nil
	}
	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "basket_add",
		Description: "Add an item to the shared shopping list. The item starts not purchased. Fails when an item of the same name is already on the list.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"item":     map[string]interface{}{"type": "string", "description": "Item name, e.g. 'Tomatoes'"},
				"category": map[string]interface{}{"type": "string", "enum": models.Categories, "description": "Category the item is shelved under"},
				"store":    map[string]interface{}{"type": "string", "enum": models.Stores, "description": "Store the item will be bought at"},
			},
			"required": []string{"item", "category", "store"},
		},
	}, addHandler)

	// Register basket_toggle tool
	toggleHandler := func(ctx context.Context, req *mcpsdk.CallToolRequest, input map[string]interface{}) (*mcpsdk.CallToolResult, map[string]interface{}, error) {
		result, err := HandleBasketToggle(ctx, svc, input)
		if err != nil {
			return toolError(err), nil, nil
		}
		return nil, result, nil
	}
	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "basket_toggle",
		Description: "Toggle an item between purchased and not purchased. Accepts a full item id or a unique prefix.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"id": map[string]interface{}{"type": "string", "description": "Item id or unique id prefix"},
			},
			"required": []string{"id"},
		},
	}, toggleHandler)

	// Register basket_remove tool
	removeHandler := func(ctx context.Context, req *mcpsdk.CallToolRequest, input map[string]interface{}) (*mcpsdk.CallToolResult, map[string]interface{}, error) {
		result, err := HandleBasketRemove(ctx, svc, input)
		if err != nil {
			return toolError(err), nil, nil
		}
		return nil, result, nil
	}
	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "basket_remove",
		Description: "Remove an item from the shopping list entirely. Accepts a full item id or a unique prefix.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"id": map[string]interface{}{"type": "string", "description": "Item id or unique id prefix"},
			},
			"required": []string{"id"},
		},
	}, removeHandler)

	// Register basket_list tool
	listHandler := func(ctx context.Context, req *mcpsdk.CallToolRequest, input map[string]interface{}) (*mcpsdk.CallToolResult, map[string]interface{}, error) {
		result, err := HandleBasketList(ctx, svc, input)
		if err != nil {
			return toolError(err), nil, nil
		}
		return nil, result, nil
	}
	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "basket_list",
		Description: "Show the shopping list grouped by category for one store, or for every store that has items.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"store": map[string]interface{}{"type": "string", "enum": models.Stores, "description": "Limit the listing to one store"},
			},
		},
	}, listHandler)

	// Register basket_status tool
	statusHandler := func(ctx context.Context, req *mcpsdk.CallToolRequest, input map[string]interface{}) (*mcpsdk.CallToolResult, map[string]interface{}, error) {
		result, err := HandleBasketStatus(ctx, svc, input)
		if err != nil {
			return toolError(err), nil, nil
		}
		return nil, result, nil
	}
	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "basket_status",
		Description: "Report item counts and the backing file of the shopping list.",
		InputSchema: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		},
	}, statusHandler)

	return nil
}

func toolError(err error) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: fmt.Sprintf("Error: %v", err)},
		},
		IsError: true,
	}
}

// HandleBasketAdd handles the basket_add tool call
func HandleBasketAdd(ctx context.Context, svc Service, params map[string]interface{}) (map[string]interface{}, error) {
	name, _ := params["item"].(string)
	category, _ := params["category"].(string)
	storeName, _ := params["store"].(string)

	item, err := svc.Add(ctx, name, category, storeName)
	if err != nil {
		return nil, err
	}

	result := itemMap(item)
	result["message"] = fmt.Sprintf("'%s' added to the list for %s under '%s'.", item.Name, item.Store, item.Category)

	return result, nil
}

// HandleBasketToggle handles the basket_toggle tool call
func HandleBasketToggle(ctx context.Context, svc Service, params map[string]interface{}) (map[string]interface{}, error) {
	id, _ := params["id"].(string)

	item, err := svc.TogglePurchased(ctx, id)
	if err != nil {
		return nil, err
	}

	message := fmt.Sprintf("'%s' marked not purchased.", item.Name)
	if item.Purchased {
		message = fmt.Sprintf("'%s' marked purchased.", item.Name)
	}

	result := itemMap(item)
	result["message"] = message

	return result, nil
}

// HandleBasketRemove handles the basket_remove tool call
func HandleBasketRemove(ctx context.Context, svc Service, params map[string]interface{}) (map[string]interface{}, error) {
	id, _ := params["id"].(string)

	item, err := svc.Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	result := itemMap(item)
	result["message"] = fmt.Sprintf("'%s' removed from the list.", item.Name)

	return result, nil
}

// HandleBasketList handles the basket_list tool call. With a store
// param it returns that store's grouped view; without one it returns
// the grouped view of every store that has items.
func HandleBasketList(ctx context.Context, svc Service, params map[string]interface{}) (map[string]interface{}, error) {
	if storeName, ok := params["store"].(string); ok && storeName != "" {
		groups, err := svc.Grouped(ctx, storeName)
		if err != nil {
			return nil, err
		}

		return map[string]interface{}{
			"store":  storeName,
			"groups": groupMaps(groups),
		}, nil
	}

	items, err := svc.List(ctx)
	if err != nil {
		return nil, err
	}

	stores := make([]map[string]interface{}, 0, len(models.Stores))
	for _, storeName := range models.Stores {
		groups := grouping.Grouped(items, storeName)
		if len(groups) == 0 {
			continue
		}
		stores = append(stores, map[string]interface{}{
			"store":  storeName,
			"groups": groupMaps(groups),
		})
	}

	return map[string]interface{}{"stores": stores}, nil
}

// HandleBasketStatus handles the basket_status tool call
func HandleBasketStatus(ctx context.Context, svc Service, params map[string]interface{}) (map[string]interface{}, error) {
	st, err := svc.Status(ctx)
	if err != nil {
		return nil, err
	}

	result := map[string]interface{}{
		"backend":   st.Backend,
		"file_name": st.FileName,
		"items":     st.Items,
		"purchased": st.Purchased,
	}
	if st.FileID != "" {
		result["file_id"] = st.FileID
		result["revision"] = st.Revision
	}

	return result, nil
}

// Helper functions

func itemMap(item models.Item) map[string]interface{} {
	return map[string]interface{}{
		"id":         item.ID,
		"item":       item.Name,
		"purchased":  item.Purchased,
		"category":   item.Category,
		"store":      item.Store,
		"created_at": item.CreatedAt,
	}
}

func groupMaps(groups []grouping.CategoryGroup) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(groups))
	for _, group := range groups {
		items := make([]map[string]interface{}, 0, len(group.Items))
		for _, item := range group.Items {
			items = append(items, itemMap(item))
		}
		out = append(out, map[string]interface{}{
			"category": group.Category,
			"items":    items,
		})
	}

	return out
}
