package semantic

import (
	pb "github.com/qdrant/go-client/qdrant"
)

// metaToPayload renders the catalog metadata as a Qdrant payload. The
// catalog id rides along so hits can be resolved back to graph nodes.
func metaToPayload(itemID string, m ItemMeta) map[string]*pb.Value {
	payload := map[string]*pb.Value{
		"id":   strValue(itemID),
		"name": strValue(m.Name),
		"type": strValue(m.Type),
	}
	setIfPresent(payload, "city", m.City)
	setIfPresent(payload, "region", m.Region)
	setIfPresent(payload, "description", m.Description)
	setIfPresent(payload, "semantic_text", m.SemanticText)
	setIfPresent(payload, "best_time_to_visit", m.BestTime)

	if len(m.Tags) > 0 {
		vals := make([]*pb.Value, len(m.Tags))
		for i, tag := range m.Tags {
			vals[i] = strValue(tag)
		}
		payload["tags"] = &pb.Value{Kind: &pb.Value_ListValue{ListValue: &pb.ListValue{Values: vals}}}
	}
	return payload
}

// hitFromScored normalizes one scored point into a RetrievalHit. Internal
// components never see the raw provider shape.
func hitFromScored(p *pb.ScoredPoint) RetrievalHit {
	hit := RetrievalHit{Score: p.GetScore()}
	payload := p.GetPayload()

	hit.ID = payload["id"].GetStringValue()
	if hit.ID == "" {
		// Fall back to the raw point id for payloads written out-of-band.
		hit.ID = p.GetId().GetUuid()
	}

	hit.Meta = ItemMeta{
		Name:         payload["name"].GetStringValue(),
		Type:         payload["type"].GetStringValue(),
		City:         payload["city"].GetStringValue(),
		Region:       payload["region"].GetStringValue(),
		Description:  payload["description"].GetStringValue(),
		SemanticText: payload["semantic_text"].GetStringValue(),
		BestTime:     payload["best_time_to_visit"].GetStringValue(),
	}
	for _, v := range payload["tags"].GetListValue().GetValues() {
		if s := v.GetStringValue(); s != "" {
			hit.Meta.Tags = append(hit.Meta.Tags, s)
		}
	}
	return hit
}

func strValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func setIfPresent(payload map[string]*pb.Value, key, val string) {
	if val != "" {
		payload[key] = strValue(val)
	}
}
