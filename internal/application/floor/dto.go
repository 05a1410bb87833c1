package floor

import (
	"github.com/opentoworkprojects/bill-sub001/internal/domain/report"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/table"
)

// CreateTableRequest represents a request to add a table
type CreateTableRequest struct {
	TableNumber int `json:"table_number" binding:"required,min=1"`
	Capacity    int `json:"capacity" binding:"required,min=1,max=100"`
}

// UpdateTableRequest represents a request to renumber or resize a table
type UpdateTableRequest struct {
	TableNumber *int `json:"table_number" binding:"omitempty,min=1"`
	Capacity    *int `json:"capacity" binding:"omitempty,min=1,max=100"`
}

// TableResponse is a table with its derived status
type TableResponse struct {
	ID           string       `json:"id"`
	TableNumber  int          `json:"table_number"`
	Capacity     int          `json:"capacity"`
	Status       table.Status `json:"status"`
	ActiveOrders int          `json:"active_orders"`
}

// ToTableResponse converts a table view
func ToTableResponse(v report.TableView) TableResponse {
	return TableResponse{
		ID:           v.ID,
		TableNumber:  v.TableNumber,
		Capacity:     v.Capacity,
		Status:       v.Status,
		ActiveOrders: v.ActiveOrders,
	}
}

func toTableResponses(views []report.TableView) []TableResponse {
	out := make([]TableResponse, len(views))
	for i, v := range views {
		out[i] = ToTableResponse(v)
	}
	return out
}
